//go:build linux

package opener

import "os/exec"

var linuxLaunchers = []string{
	"xdg-open",
	"gio",
	"sensible-browser",
}

func platformLauncher(target string) (string, []string) {
	for _, bin := range linuxLaunchers {
		if _, err := exec.LookPath(bin); err == nil {
			if bin == "gio" {
				return bin, []string{"open", target}
			}
			return bin, []string{target}
		}
	}
	return "xdg-open", []string{target}
}
