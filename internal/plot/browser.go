package plot

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenBrowser hands the preview URL to the platform's URL opener.
func OpenBrowser(url string) error {
	name, args := launcher(runtime.GOOS)
	if name == "" {
		return fmt.Errorf("no browser launcher for %s", runtime.GOOS)
	}
	return exec.Command(name, append(args, url)...).Start()
}

// launcher returns the URL-opener command for a GOOS, or an empty name
// when the platform has none.
func launcher(goos string) (name string, args []string) {
	switch goos {
	case "linux":
		return "xdg-open", nil
	case "darwin":
		return "open", nil
	case "windows":
		return "cmd", []string{"/c", "start"}
	}
	return "", nil
}
