package hcl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/ioclient/internal/config"
	"github.com/specialistvlad/ioclient/internal/ctxlog"
	"github.com/specialistvlad/ioclient/internal/fsutil"
	"github.com/specialistvlad/ioclient/internal/ioerr"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	environ func() []string
}

// NewLoader creates a new HCL configuration loader reading the real
// process environment.
func NewLoader() *Loader {
	return &Loader{environ: os.Environ}
}

// fileRoot decodes the top level of a definition file.
type fileRoot struct {
	Clients []*clientBlock `hcl:"client,block"`
	Remain  hcl.Body       `hcl:",remain"`
}

type clientBlock struct {
	URI     hcl.Expression `hcl:"uri"`
	Options hcl.Expression `hcl:"options,optional"`
}

var _ config.Loader = (*Loader)(nil)

// Load parses the file at path, or every .hcl file under it when path is a
// directory, and returns the single client configuration they declare.
// Every failure is reported as *ioerr.ConfigurationError.
func (l *Loader) Load(ctx context.Context, path string) (config.ConnectionConfig, error) {
	logger := ctxlog.FromContext(ctx).With("path", path)
	logger.Debug("HCL loader started.")

	files, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return config.ConnectionConfig{}, ioerr.NewConfigurationError("", fmt.Errorf("failed to read config path: %w", err))
	}
	if len(files) == 0 {
		return config.ConnectionConfig{}, ioerr.NewConfigurationError("", fmt.Errorf("no .hcl files found in %s", path))
	}

	parser := hclparse.NewParser()
	var clients []*clientBlock
	for _, file := range files {
		logger.Debug("Parsing HCL file.", "file", file)
		blocks, err := decodeFile(parser, file)
		if err != nil {
			return config.ConnectionConfig{}, err
		}
		clients = append(clients, blocks...)
	}

	switch len(clients) {
	case 0:
		return config.ConnectionConfig{}, ioerr.NewConfigurationError("client", fmt.Errorf("no client block found in %s", path))
	case 1:
	default:
		return config.ConnectionConfig{}, ioerr.NewConfigurationError("client", fmt.Errorf("%s declares %d client blocks, expected exactly one", path, len(clients)))
	}

	cfg, err := l.translate(clients[0])
	if err != nil {
		return config.ConnectionConfig{}, err
	}
	logger.Debug("HCL loading complete.", "uri", cfg.URI, "options", len(cfg.Options), "files", len(files))
	return cfg, nil
}

func decodeFile(parser *hclparse.Parser, path string) ([]*clientBlock, error) {
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, ioerr.NewConfigurationError("", fmt.Errorf("failed to parse HCL file %s: %w", path, diags))
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, ioerr.NewConfigurationError("", fmt.Errorf("failed to decode HCL file %s: %w", path, diags))
	}
	return root.Clients, nil
}

func (l *Loader) translate(block *clientBlock) (config.ConnectionConfig, error) {
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": l.envObject()},
	}

	uriVal, diags := block.URI.Value(evalCtx)
	if diags.HasErrors() {
		return config.ConnectionConfig{}, ioerr.NewConfigurationError("uri", diags)
	}
	if uriVal.IsNull() || !uriVal.IsKnown() || !uriVal.Type().Equals(cty.String) {
		return config.ConnectionConfig{}, ioerr.NewConfigurationError("uri", fmt.Errorf("expected string, got %s", uriVal.Type().FriendlyName()))
	}

	cfg := config.ConnectionConfig{URI: uriVal.AsString()}
	if block.Options == nil {
		return cfg, nil
	}

	optsVal, diags := block.Options.Value(evalCtx)
	if diags.HasErrors() {
		return config.ConnectionConfig{}, ioerr.NewConfigurationError("options", diags)
	}
	if optsVal.IsNull() {
		return cfg, nil
	}
	if !optsVal.Type().IsObjectType() && !optsVal.Type().IsMapType() {
		return config.ConnectionConfig{}, ioerr.NewConfigurationError("options", fmt.Errorf("expected object, got %s", optsVal.Type().FriendlyName()))
	}

	raw, err := ctyValueToInterface(optsVal)
	if err != nil {
		return config.ConnectionConfig{}, ioerr.NewConfigurationError("options", err)
	}
	opts, ok := raw.(map[string]any)
	if !ok {
		return config.ConnectionConfig{}, ioerr.NewConfigurationError("options", errors.New("options did not decode to a map"))
	}
	cfg.Options = opts
	return cfg, nil
}

// envObject exposes the environment as an object so that a reference to an
// unset variable fails with an "unsupported attribute" diagnostic.
func (l *Loader) envObject() cty.Value {
	vars := make(map[string]cty.Value)
	for _, e := range l.environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			vars[pair[0]] = cty.StringVal(pair[1])
		}
	}
	return cty.ObjectVal(vars)
}
