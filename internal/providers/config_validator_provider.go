package providers

import (
	"archivist/internal/structures"
	"fmt"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return fmt.Errorf("invalid configuration: %s", v.Errors.One())
	}

	for i, doc := range cv.conf.Tracker.Documents {
		dv := validate.Struct(&doc)
		if !dv.Validate() {
			return fmt.Errorf("invalid tracked document #%d: %s", i, dv.Errors.One())
		}
	}

	if cv.conf.Tracker.Concurrency < 0 {
		return fmt.Errorf("invalid configuration: tracker.concurrency must not be negative")
	}

	if cv.conf.Repository.Publish && cv.conf.Repository.Remote == "" {
		return fmt.Errorf("invalid configuration: repository.remote is required when publishing")
	}

	return nil
}
