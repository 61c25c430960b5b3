package pdf

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Protect encrypts the PDF at path in place, setting the same password for
// user and owner access.
//
// Two ordered strategies: encrypt in place first; if that save fails (lock
// contention on some platforms), encrypt to a temp file in the same
// directory and rename it over the original. When both fail the error is
// returned and the unprotected file is left intact on disk — the pipeline
// degrades to "processed but unprotected" instead of aborting the run.
func Protect(path, password string) error {
	conf := relaxedConf()
	conf.UserPW = password
	conf.OwnerPW = password

	if err := api.EncryptFile(path, "", conf); err == nil {
		return nil
	}

	tmp := path + ".enc.tmp"
	conf = relaxedConf()
	conf.UserPW = password
	conf.OwnerPW = password
	if err := api.EncryptFile(path, tmp, conf); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to encrypt %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s with encrypted copy: %w", path, err)
	}
	return nil
}
