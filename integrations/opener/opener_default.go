//go:build !linux && !darwin && !windows

package opener

func platformLauncher(string) (string, []string) {
	return "", nil
}
