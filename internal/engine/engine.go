// Package engine wires the sheet store, formula evaluator, and AI assist
// pipeline behind the JSON-RPC method surface.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"sheetpilot/engine/internal/appdirs"
	"sheetpilot/engine/internal/assist"
	"sheetpilot/engine/internal/envutil"
	"sheetpilot/engine/internal/errinfo"
	"sheetpilot/engine/internal/gemini"
	"sheetpilot/engine/internal/llm"
	"sheetpilot/engine/internal/logging"
	"sheetpilot/engine/internal/secrets"
	"sheetpilot/engine/internal/settings"
	"sheetpilot/engine/internal/sheet"
)

const (
	EngineVersion = "0.1.0"
	APIVersion    = "1"
)

type Notifier func(method string, params any)

// AIClient is the provider surface the engine needs. The real implementation
// is the Gemini client; tests and SHEETPILOT_FAKE_GEMINI swap in a fake.
type AIClient interface {
	ValidateKey(ctx context.Context, apiKey string) error
	GenerateActions(ctx context.Context, apiKey, model, systemInstruction string, messages []llm.Message) (string, error)
}

type Engine struct {
	dataDir      string
	workbooksDir string
	settings     *settings.Store
	secrets      *secrets.Store
	store        *sheet.Store
	session      *assist.Session
	client       AIClient
	notify       Notifier
	logger       *slog.Logger
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithClient(client AIClient) Option {
	return func(e *Engine) {
		if client != nil {
			e.client = client
		}
	}
}

func New(opts ...Option) (*Engine, error) {
	engine := &Engine{logger: logging.Nop()}
	for _, opt := range opts {
		opt(engine)
	}
	dataDir, err := appdirs.DataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	engine.dataDir = dataDir
	engine.workbooksDir = appdirs.WorkbooksDir(dataDir)
	if err := os.MkdirAll(engine.workbooksDir, 0o755); err != nil {
		return nil, err
	}
	engine.settings = settings.NewStore(filepath.Join(dataDir, "settings.json"))
	engine.secrets = secrets.NewStore(filepath.Join(dataDir, "secrets.enc"), filepath.Join(dataDir, "master.key"))
	engine.store = sheet.NewStore()

	current, err := engine.settings.Load()
	if err != nil {
		return nil, err
	}
	engine.session = assist.NewSession(current.MaxContextMessages)

	if engine.client == nil {
		if envutil.Bool("SHEETPILOT_FAKE_GEMINI") {
			engine.client = newFakeGemini()
		} else {
			engine.client = gemini.NewClient()
		}
	}
	engine.logger.Debug("engine.init", "data_dir", dataDir, "fake_gemini", envutil.Bool("SHEETPILOT_FAKE_GEMINI"))
	return engine, nil
}

func (e *Engine) SetNotifier(notify Notifier) {
	e.notify = notify
}

func (e *Engine) EngineGetInfo(ctx context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	return map[string]any{
		"engine_version": EngineVersion,
		"api_version":    APIVersion,
	}, nil
}

func (e *Engine) SettingsGet(ctx context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	current, err := e.settings.Load()
	if err != nil {
		return nil, errinfo.FileReadFailed(errinfo.PhaseSettings, err.Error())
	}
	key, err := e.secrets.GetGeminiKey()
	if err != nil {
		return nil, errinfo.FileReadFailed(errinfo.PhaseSettings, err.Error())
	}
	return map[string]any{
		"model_id":             current.ModelID,
		"max_context_messages": current.MaxContextMessages,
		"api_key_configured":   key != "",
	}, nil
}

func (e *Engine) SettingsSetModel(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		ModelID string `json:"model_id"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.ModelID == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSettings, "invalid params")
	}
	if _, err := e.settings.Update(func(s *settings.Settings) {
		s.ModelID = req.ModelID
	}); err != nil {
		return nil, errinfo.FileWriteFailed(errinfo.PhaseSettings, err.Error())
	}
	e.logger.Info("settings.set_model", "model_id", req.ModelID)
	return map[string]any{"model_id": req.ModelID}, nil
}

func (e *Engine) SettingsSetApiKey(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.APIKey == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSettings, "invalid params")
	}
	if err := e.secrets.SetGeminiKey(req.APIKey); err != nil {
		return nil, errinfo.FileWriteFailed(errinfo.PhaseSettings, err.Error())
	}
	e.logger.Info("settings.set_api_key")
	return map[string]any{"configured": true}, nil
}

func (e *Engine) SettingsClearApiKey(ctx context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	if err := e.secrets.ClearGeminiKey(); err != nil {
		return nil, errinfo.FileWriteFailed(errinfo.PhaseSettings, err.Error())
	}
	e.logger.Info("settings.clear_api_key")
	return map[string]any{"configured": false}, nil
}

func (e *Engine) SettingsValidateKey(ctx context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	key, err := e.secrets.GetGeminiKey()
	if err != nil {
		return nil, errinfo.FileReadFailed(errinfo.PhaseSettings, err.Error())
	}
	if key == "" {
		return nil, errinfo.ProviderNotConfigured(errinfo.PhaseSettings)
	}
	if err := e.client.ValidateKey(ctx, key); err != nil {
		return nil, mapLLMError(errinfo.PhaseSettings, err)
	}
	return map[string]any{"valid": true}, nil
}
