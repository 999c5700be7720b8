package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/style"
	"github.com/charmbracelet/lipgloss"
)

// CheckDependencies exits when the external player binary is not on PATH.
func CheckDependencies(binary string) {
	if binary == "" {
		binary = "mpv"
	}

	if _, err := exec.LookPath(binary); err != nil {
		printMissingDependencyError(binary)
		os.Exit(1)
	}
}

func installHint(dep string) string {
	switch runtime.GOOS {
	case constant.Darwin:
		return "brew install " + dep
	case constant.Linux:
		return "sudo apt install " + dep
	case constant.Windows:
		return "scoop install " + dep
	case constant.Android:
		return "pkg install " + dep
	default:
		return ""
	}
}

func printMissingDependencyError(dep string) {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.HiRed).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(style.HiRed).Render(fmt.Sprintf("%s Error: Missing Dependency", icon.Get(icon.Fail)))
	body := style.New().Foreground(style.Text).Render(fmt.Sprintf("The player '%s' was not found in your PATH.", dep))

	suggestion := ""
	if installCmd := installHint(dep); installCmd != "" {
		suggestion = fmt.Sprintf("\n\nTo install it, try running:\n  %s", style.New().Foreground(style.AccentColor).Bold(true).Render(installCmd))
	}

	fmt.Println(box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			suggestion,
		),
	))
}
