package core

import (
	"tcpstream/config"
	"tcpstream/internal/capability"
	"tcpstream/internal/metrics"
	"tcpstream/internal/transport"
	"tcpstream/stream"
	"tcpstream/tunnel"
	"tcpstream/util"
)

// Build constructs the Mode for a validated configuration.  m may be
// nil when no metrics are wanted.
func Build(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (Mode, error) {
	if err := util.CheckNumericHost(cfg.Host, cfg.NoDNS); err != nil {
		return nil, err
	}

	enc, err := stream.ParseEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	return &ConnectMode{
		Dialer:     buildDialer(cfg, logger),
		Capability: buildCapability(cfg),
		Host:       cfg.Host,
		Port:       cfg.Port,
		Logger:     logger,
		Options: []stream.Option{
			stream.WithConnectTimeout(cfg.Timeout),
			stream.WithEncoding(enc),
			stream.WithChunkSize(cfg.ChunkSize),
			stream.WithIdleGap(cfg.IdleGap),
			stream.WithStopTimeout(cfg.StopTimeout),
			stream.WithMetrics(m),
		},
	}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.Timeout,
			KeepAlive:     cfg.KeepAlive,
		}, logger)
	}

	return &transport.TCPDialer{
		Timeout:   cfg.Timeout,
		LocalPort: cfg.LocalPort,
	}
}

// buildCapability selects the per-connection behaviour.
func buildCapability(cfg *config.Config) capability.Capability {
	if cfg.Execute != "" || cfg.Command != "" {
		return &capability.Exec{
			Program: cfg.Execute,
			Command: cfg.Command,
		}
	}
	return &capability.Relay{Linger: cfg.Quit}
}
