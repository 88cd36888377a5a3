package commands

import (
	"git.home.luguber.info/inful/bookforge/internal/server"
)

// ServeCmd runs the read-only status server.
type ServeCmd struct {
	Addr     string `help:"Listen address (default from config)"`
	BooksDir string `help:"Books directory to serve (default from config)"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadAppConfig(root)
	if err != nil {
		return err
	}
	sc := cfg.Server
	if s.Addr != "" {
		sc.Addr = s.Addr
	}
	if s.BooksDir != "" {
		sc.BooksDir = s.BooksDir
	}

	ctx, cancel := SignalContext()
	defer cancel()
	return server.New(sc).ListenAndServe(ctx)
}
