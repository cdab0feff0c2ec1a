package vertical

import (
	"strings"

	"go.uber.org/zap"
)

// Service resolves verticals from category labels and by id.
type Service struct {
	configs []Config
	byID    map[string]*Config
}

// NewService builds a Service over the given ordered configurations.
func NewService(configs []Config) *Service {
	s := &Service{
		configs: configs,
		byID:    make(map[string]*Config, len(configs)),
	}
	for i := range configs {
		s.byID[configs[i].ID] = &configs[i]
	}
	return s
}

// NewServiceFromFile loads the configuration file and builds a Service.
func NewServiceFromFile(path string) (*Service, error) {
	configs, err := LoadConfigs(path)
	if err != nil {
		return nil, err
	}
	return NewService(configs), nil
}

// Configs returns the verticals in declaration order.
func (s *Service) Configs() []Config {
	return s.configs
}

// ConfigByID returns the vertical with the given id, or nil.
func (s *Service) ConfigByID(id string) *Config {
	return s.byID[id]
}

// VerticalForCategories returns the first configured vertical (declaration
// order) matched by any of the given categories, or nil when none matches.
// A matched vertical is discarded when one of its excluding tokens appears
// in any category.
func (s *Service) VerticalForCategories(categories []string) *Config {
	for i := range s.configs {
		vc := &s.configs[i]
		if !matchesAny(vc, categories) {
			continue
		}
		if token := excludingToken(vc, categories); token != "" {
			zap.L().Debug("vertical: match discarded by excluding token",
				zap.String("vertical", vc.ID),
				zap.String("token", token),
			)
			continue
		}
		return vc
	}
	return nil
}

func matchesAny(vc *Config, categories []string) bool {
	for _, cat := range categories {
		cat = strings.TrimSpace(cat)
		for _, matching := range vc.MatchingCategories {
			if strings.EqualFold(cat, strings.TrimSpace(matching)) {
				return true
			}
		}
	}
	return false
}

func excludingToken(vc *Config, categories []string) string {
	for _, token := range vc.ExcludingTokens {
		for _, cat := range categories {
			if strings.Contains(strings.ToLower(cat), strings.ToLower(token)) {
				return token
			}
		}
	}
	return ""
}
