package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tags and the rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if cfg.GIO.MountRoot != "" && !filepath.IsAbs(cfg.GIO.MountRoot) {
		return fmt.Errorf("gio.mount_root: %q is not an absolute path", cfg.GIO.MountRoot)
	}
	if cfg.Trash.Dir != "" && !filepath.IsAbs(cfg.Trash.Dir) {
		return fmt.Errorf("trash.dir: %q is not an absolute path", cfg.Trash.Dir)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
