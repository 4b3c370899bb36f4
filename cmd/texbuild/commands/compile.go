package commands

import (
	"log/slog"

	"git.home.luguber.info/inful/texbuild/internal/compile"
)

// CompileCmd implements the 'compile' command.
type CompileCmd struct {
	Files    []string `arg:"" name:"file" help:"Documents to compile (.tex, .Rnw, .Snw, .nw)" type:"path"`
	Action   string   `help:"Run after a successful compile: view or publish"`
	NoClean  bool     `name:"no-clean" help:"Keep auxiliary files (.aux, .out, .log, .blg)"`
	Texi2Dvi bool     `name:"texi2dvi" help:"Compile through texi2dvi when it is installed"`
	Jobs     int      `short:"j" help:"Maximum number of documents compiled at once" default:"1"`
}

func (c *CompileCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if c.NoClean {
		keep := false
		cfg.TeX.CleanOutput = &keep
	}
	if c.Texi2Dvi {
		cfg.TeX.UseTexi2Dvi = true
	}

	action := compile.ParseAction(c.Action)
	if c.Action != "" && action == compile.ActionNone {
		slog.Warn("Ignoring unknown action", "action", c.Action)
	}

	rt, err := openRuntime(cfg, action == compile.ActionPublish)
	if err != nil {
		return err
	}
	defer rt.Close()

	svc := compile.NewService(cfg, rt.serviceOptions()...)
	reqs := make([]compile.Request, len(c.Files))
	for i, f := range c.Files {
		reqs[i] = compile.Request{Target: f, Action: action}
	}

	outcomes := svc.CompileAll(g.ctx(), reqs, compile.NewWriterSink(g.out()), c.Jobs)
	rt.flushMetrics()
	if err := compile.FirstFailure(outcomes); err != nil {
		return &ReportedError{Err: err}
	}
	return nil
}
