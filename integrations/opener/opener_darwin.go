//go:build darwin

package opener

func platformLauncher(target string) (string, []string) {
	return "open", []string{target}
}
