package graphics

import (
	"fmt"
	"image/png"
	"io"
	"os"
)

// WritePNG は Scene を PNG として書き出す
func WritePNG(w io.Writer, s Scene) error {
	if err := png.Encode(w, Render(s)); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// SavePNG は Scene を PNG ファイルに保存する
func SavePNG(path string, s Scene) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	return WritePNG(f, s)
}
