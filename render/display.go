package render

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"runtime"

	"github.com/carbocation/pfx"
)

// Display writes the rendered image to a temporary file and opens it with the
// platform's default viewer. The file is left in place for the viewer.
func Display(img []byte, format Format) error {
	f, err := os.CreateTemp("", "phylolda-*."+format.String())
	if err != nil {
		return pfx.Err(err)
	}

	if _, err := f.Write(img); err != nil {
		f.Close()
		return pfx.Err(err)
	}
	if err := f.Close(); err != nil {
		return pfx.Err(err)
	}

	log.Println("Opening", f.Name())

	cmd := viewerCommand(f.Name())
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("Could not open a viewer for %s (pass an output path to save the figure instead): %w", f.Name(), err)
	}

	return nil
}

func viewerCommand(path string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path)
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path)
	default:
		return exec.Command("xdg-open", path)
	}
}
