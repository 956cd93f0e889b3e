// Package open hands URLs to the desktop's default handler.
package open

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/kinema-cli/kinema/constant"
)

// WebURL is the item's details page in the server's web client.
func WebURL(server, itemID string) (string, error) {
	base, err := url.Parse(strings.TrimSuffix(server, "/"))
	if err != nil {
		return "", err
	}

	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("server url %q is not absolute", server)
	}

	base.Path += "/web/"
	base.Fragment = "/details?id=" + url.QueryEscape(itemID)
	return base.String(), nil
}

// Browser launches the default handler for target and returns once it has started.
func Browser(ctx context.Context, target string) error {
	name, args, ok := handler(runtime.GOOS)
	if !ok {
		return fmt.Errorf("no url handler on %s", runtime.GOOS)
	}

	return exec.CommandContext(ctx, name, append(args, target)...).Start()
}

func handler(goos string) (string, []string, bool) {
	switch goos {
	case constant.Windows:
		return filepath.Join(os.Getenv("SYSTEMROOT"), "System32", "rundll32.exe"), []string{"url.dll,FileProtocolHandler"}, true
	case constant.Darwin:
		return "open", nil, true
	case constant.Linux:
		return "xdg-open", nil, true
	default:
		return "", nil, false
	}
}
