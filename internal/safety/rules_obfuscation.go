package safety

import (
	"github.com/cmdguard/cmdguard/internal/risk"
	"github.com/cmdguard/cmdguard/internal/shell"
)

// decodePipeRule flags pipelines that decode an encoded payload and feed the
// result to an interpreter. The payload itself is opaque, which is the point
// of encoding it.
type decodePipeRule struct{}

func (decodePipeRule) ID() string         { return "decode-pipe-exec" }
func (decodePipeRule) Category() Category { return CategoryObfuscation }

var decoders = map[string]bool{
	"base64":  true,
	"base32":  true,
	"xxd":     true,
	"openssl": true,
}

func (r decodePipeRule) CheckPipeline(pl *shell.Pipeline, vars *shell.VarContext) []Finding {
	sawDecoder := false
	for _, stage := range pl.Cmds {
		sc, ok := stage.Cmd.(*shell.SimpleCommand)
		if !ok {
			continue
		}
		name, ok := commandName(sc, vars)
		if !ok {
			continue
		}
		if decoders[name] {
			sawDecoder = true
			continue
		}
		if sawDecoder && interpreters[name] {
			return []Finding{*structuralFinding(r, sc.Span, risk.High,
				"Encoded payload is decoded and piped into "+name,
				"Decode to a file and inspect it before running")}
		}
	}
	return nil
}
