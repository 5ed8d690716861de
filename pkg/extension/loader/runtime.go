package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/modulaur/modulaur/pkg/extension"
	"github.com/modulaur/modulaur/pkg/fieldschema"
)

// Registration export names. A bundle must provide exactly one of them.
const (
	// exportRegister is the primary contract: a function taking no
	// arguments and returning a packed pointer to a JSON object of the
	// form {"components": [...]}.
	exportRegister = "plugin_register"

	// exportComponents is the alternate contract: same calling
	// convention, but the JSON object maps component IDs to their
	// definitions.
	exportComponents = "plugin_components"
)

// RuntimeConfig bounds a bundle's registration run.
type RuntimeConfig struct {
	// Timeout limits how long the registration call may run.
	Timeout time.Duration

	// MemoryLimitPages caps the module's linear memory in 64KB pages.
	MemoryLimitPages uint32
}

// DefaultRuntimeConfig returns the limits applied when none are set.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Timeout:          10 * time.Second,
		MemoryLimitPages: 256, // 16MB
	}
}

// registeredComponent is one renderable unit yielded by a bundle's
// registration call.
type registeredComponent struct {
	ID            string              `json:"id"`
	Kind          extension.Kind      `json:"kind"`
	DisplayName   string              `json:"displayName,omitempty"`
	Description   string              `json:"description,omitempty"`
	Icon          string              `json:"icon,omitempty"`
	Category      string              `json:"category,omitempty"`
	Export        string              `json:"export,omitempty"`
	ConfigSchema  []fieldschema.Field `json:"configSchema,omitempty"`
	DefaultConfig map[string]any      `json:"defaultConfig,omitempty"`
}

// registrationPayload is the JSON object a registration call returns.
type registrationPayload struct {
	Components []registeredComponent `json:"components"`
}

// executeRegistration runs the bundle's registration export and returns
// the components it yields. The module executes exactly once: the
// runtime is torn down before returning, success or not.
func executeRegistration(ctx context.Context, wasmBytes []byte, cfg RuntimeConfig) ([]registeredComponent, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultRuntimeConfig().Timeout
	}
	if cfg.MemoryLimitPages == 0 {
		cfg.MemoryLimitPages = DefaultRuntimeConfig().MemoryLimitPages
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	runtimeConfig := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(cfg.MemoryLimitPages).
		WithCloseOnContextDone(true)

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeConfig)
	defer runtime.Close(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return nil, extension.NewLoadError("failed to instantiate WASI", err)
	}

	module, err := runtime.Instantiate(ctx, wasmBytes)
	if err != nil {
		return nil, extension.NewLoadError("failed to instantiate bundle", err).
			WithCode(extension.ErrCodeParse)
	}
	defer module.Close(ctx)

	fn, alternate := registrationExport(module)
	if fn == nil {
		return nil, extension.NewLoadError(
			fmt.Sprintf("bundle exports neither %s nor %s", exportRegister, exportComponents), nil).
			WithCode(extension.ErrCodeNoContract)
	}

	payload, err := callPacked(ctx, module, fn)
	if err != nil {
		return nil, err
	}

	if alternate {
		return decodeComponentMap(payload)
	}
	return decodePayload(payload)
}

// registrationExport picks the bundle's registration function. The
// second return is true when the alternate component-map contract is in
// use.
func registrationExport(module api.Module) (api.Function, bool) {
	if fn := module.ExportedFunction(exportRegister); fn != nil {
		return fn, false
	}
	if fn := module.ExportedFunction(exportComponents); fn != nil {
		return fn, true
	}
	return nil, false
}

// callPacked invokes a no-argument export returning a packed uint64:
// output pointer in the upper 32 bits, output length in the lower 32.
func callPacked(ctx context.Context, module api.Module, fn api.Function) ([]byte, error) {
	results, err := fn.Call(ctx)
	if err != nil {
		return nil, extension.NewLoadError("registration call failed", err)
	}
	if len(results) == 0 {
		return nil, extension.NewLoadError("registration call returned no result", nil).
			WithCode(extension.ErrCodeNoContract)
	}

	packed := results[0]
	ptr := uint32(packed >> 32)
	length := uint32(packed & 0xFFFFFFFF)
	if length == 0 {
		return []byte("{}"), nil
	}

	memory := module.Memory()
	if memory == nil {
		return nil, extension.NewLoadError("bundle exports no memory", nil)
	}
	out, ok := memory.Read(ptr, length)
	if !ok {
		return nil, extension.NewLoadError("failed to read registration result from bundle memory", nil)
	}
	// Copy before the runtime is torn down.
	return append([]byte(nil), out...), nil
}

func decodePayload(data []byte) ([]registeredComponent, error) {
	var payload registrationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, extension.NewLoadError("malformed registration payload", err).
			WithCode(extension.ErrCodeParse)
	}
	return payload.Components, nil
}

// decodeComponentMap handles the alternate contract where the payload
// maps component IDs to definitions instead of listing them.
func decodeComponentMap(data []byte) ([]registeredComponent, error) {
	var byID map[string]registeredComponent
	if err := json.Unmarshal(data, &byID); err != nil {
		return nil, extension.NewLoadError("malformed component map payload", err).
			WithCode(extension.ErrCodeParse)
	}

	out := make([]registeredComponent, 0, len(byID))
	for id, c := range byID {
		if c.ID == "" {
			c.ID = id
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
