//go:build windows

package opener

func platformLauncher(target string) (string, []string) {
	return "rundll32", []string{"url.dll,FileProtocolHandler", target}
}
