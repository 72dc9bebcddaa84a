package llm

import "strings"

// ModeMock selects the offline mock client.
const ModeMock = "MOCK"

// NewClient returns a MockClient when mode is MOCK and a Gateway otherwise.
func NewClient(mode string, cfg Config) Client {
	if strings.EqualFold(mode, ModeMock) {
		if cfg.Logger != nil {
			cfg.Logger.Warn("LLM_MODE=MOCK detected, using mock LLM client")
		}
		return NewMockClient()
	}
	return NewGateway(cfg)
}
