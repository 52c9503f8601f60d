package service

import (
	"strings"

	"example.com/backstage/services/tenders/config"

	"github.com/pkg/errors"
)

// Remote call parameter keys of sourcing.create_event
const (
	ParamTemplateID         = "template_id"
	ParamDefaultTitleFormat = "default_title_format"
)

// Settings is the immutable configuration the service components share.
// It is built once at start-up and passed by pointer.
type Settings struct {
	TemplateID         string
	DefaultTitleFormat string
	OCDSAuthority      string
	OCIDPrefix         string
	Documents          DocumentLimits
	Status             *StatusTranslator
}

// NewSettings validates cfg and builds the service settings
func NewSettings(cfg config.Config) (*Settings, error) {
	params := cfg.Sourcing.CreateEvent
	templateID := params[ParamTemplateID]
	if templateID == "" {
		return nil, errors.New("sourcing.create_event.template_id is required")
	}
	titleFormat := params[ParamDefaultTitleFormat]
	if strings.Count(titleFormat, "%s") != 2 {
		return nil, errors.Errorf("sourcing.create_event.default_title_format %q must contain two %%s verbs", titleFormat)
	}

	status, err := NewStatusTranslator(cfg.Sourcing.StatusMap)
	if err != nil {
		return nil, errors.Wrap(err, "invalid sourcing.status_map")
	}

	if cfg.OCDS.Authority == "" || cfg.OCDS.Prefix == "" {
		return nil, errors.New("ocds.authority and ocds.prefix are required")
	}

	limits := NewDocumentLimits(cfg.Documents.AllowedExtensions, cfg.Documents.MaxSize, cfg.Documents.MaxTotalSize)
	if len(limits.AllowedExtensions) == 0 {
		return nil, errors.New("documents.allowed_extensions must not be empty")
	}
	if limits.MaxSize <= 0 || limits.MaxTotalSize < limits.MaxSize {
		return nil, errors.Errorf("invalid document limits: max_size=%d max_total_size=%d", limits.MaxSize, limits.MaxTotalSize)
	}

	return &Settings{
		TemplateID:         templateID,
		DefaultTitleFormat: titleFormat,
		OCDSAuthority:      cfg.OCDS.Authority,
		OCIDPrefix:         cfg.OCDS.Prefix,
		Documents:          limits,
		Status:             status,
	}, nil
}
