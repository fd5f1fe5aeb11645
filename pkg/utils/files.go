package utils

import (
	"io"
	"os"
	"path/filepath"
)

func WriteFileInPath(filename string, to string, content []byte) error {
	if to != "" {
		if _, err := os.Stat(to); os.IsNotExist(err) {
			err = os.MkdirAll(to, os.ModePerm)
			if err != nil {
				return err
			}
		}
	}
	return os.WriteFile(filepath.Join(to, filename), content, 0600)
}

// CopyFile duplicates src at dst, carrying over src's permission bits. It
// refuses to overwrite an existing dst.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
