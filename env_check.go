package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"projection-tutor/internal/constants"
)

// envCheckPassMessage is the confirmation line operators look for before
// starting the service.
const envCheckPassMessage = "✓ 配置检查通过！可以启动服务"

var (
	checkMark = color.New(color.FgGreen).Sprint("✓")
	crossMark = color.New(color.FgRed).Sprint("✗")
	warnMark  = color.New(color.FgYellow).Sprint("⚠")
)

// runEnvCheck verifies the credential configuration and reports the result.
// Returns the process exit code: 0 when the configuration is usable, 1
// otherwise.
func runEnvCheck(w io.Writer, envLoaded bool) int {
	if envLoaded {
		fmt.Fprintf(w, "%s 成功加载 .env 文件\n", checkMark)
	} else {
		fmt.Fprintf(w, "%s 未找到 .env 文件（仍会检查系统环境变量）\n", warnMark)
	}

	key := os.Getenv(constants.EnvAPIKey)

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w, "环境变量检查")
	fmt.Fprintln(w, strings.Repeat("=", 50))

	if key == "" {
		fmt.Fprintf(w, "%s API Key未设置\n", crossMark)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "请创建 .env 文件并添加：%s=your-api-key-here\n", constants.EnvAPIKey)
		fmt.Fprintf(w, "或设置环境变量：export %s=your-api-key-here\n", constants.EnvAPIKey)
		return 1
	}

	fmt.Fprintf(w, "%s %s: %s\n", checkMark, constants.EnvAPIKey, maskAPIKey(key))
	fmt.Fprintf(w, "  长度: %d 字符\n", len(key))

	problems := checkAPIKeyFormat(key)
	if len(problems) == 0 {
		fmt.Fprintf(w, "%s API Key 格式正确（以 'sk-' 开头）\n", checkMark)
	}
	for _, problem := range problems {
		fmt.Fprintf(w, "%s %s\n", warnMark, problem)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, envCheckPassMessage)
	return 0
}

// maskAPIKey hides the middle of a credential for display: first 8 and last
// 4 characters are kept, the rest is starred. Short keys are fully starred.
func maskAPIKey(key string) string {
	if len(key) <= 12 {
		return strings.Repeat("*", len(key))
	}
	return key[:8] + strings.Repeat("*", len(key)-12) + key[len(key)-4:]
}

// checkAPIKeyFormat reports formatting problems with the configured key. The
// value must not be quoted, must not carry stray whitespace, and is normally
// issued with an "sk-" prefix.
func checkAPIKeyFormat(key string) []string {
	var problems []string

	if strings.TrimSpace(key) != key {
		problems = append(problems, "API Key 前后含有空白字符，请去除")
	}
	trimmed := strings.TrimSpace(key)

	if len(trimmed) >= 2 {
		first, last := trimmed[0], trimmed[len(trimmed)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			problems = append(problems, "API Key 不要用引号包裹")
			trimmed = trimmed[1 : len(trimmed)-1]
		}
	}

	if !strings.HasPrefix(trimmed, "sk-") {
		problems = append(problems, "API Key 格式可能不正确（通常以 'sk-' 开头）")
	}

	return problems
}
