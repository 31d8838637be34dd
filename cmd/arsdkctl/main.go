// Command arsdkctl is an example controller: it performs the net
// handshake against a drone, sends TakeOff, streams PCMD for a few
// seconds, then Landing, logging state events as they arrive.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/arsdk-go/arsdk/pkg/arsdk/cmditf"
	"github.com/arsdk-go/arsdk/pkg/arsdk/codec"
	"github.com/arsdk-go/arsdk/pkg/arsdk/handshake"
	"github.com/arsdk-go/arsdk/pkg/arsdk/transport"
	arsdknet "github.com/arsdk-go/arsdk/pkg/arsdk/transport/net"
	"github.com/arsdk-go/arsdk/pkg/logger"
)

const version = "1.0.0"

type config struct {
	Host         string
	DiscoverPort int
	D2CPort      int
	QoSMode      int
}

func loadConfig() config {
	cfg := config{Host: "127.0.0.1", DiscoverPort: 44444, D2CPort: 43210, QoSMode: 0}
	if v := os.Getenv("ARSDKCTL_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("ARSDKCTL_DISCOVER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DiscoverPort = n
		}
	}
	return cfg
}

func main() {
	logger.Banner("arsdkctl - drone controller", version)
	cfg := loadConfig()

	resp, err := handshake.DialNet(cfg.Host, cfg.DiscoverPort, handshake.Request{
		ControllerType: "computer",
		ControllerName: "arsdkctl",
		D2CPort:        cfg.D2CPort,
		QoSMode:        cfg.QoSMode,
	}, 5*time.Second)
	if err != nil {
		logger.Fatal("handshake failed: %v", err)
	}
	logger.Success("handshake complete, device c2d_port=%d", resp.C2DPort)

	tr := arsdknet.New(arsdknet.Config{
		LocalAddr:  "0.0.0.0",
		RxPort:     cfg.D2CPort,
		TxPort:     resp.C2DPort,
		RemoteAddr: cfg.Host,
		QoS:        cfg.QoSMode == 1,
	})

	itf := cmditf.NewV1(tr, append(cmditf.DefaultC2DQueues(), cmditf.DefaultD2CQueues()...), func(c *codec.Command) {
		if c.Desc != nil {
			logger.Info("event: %s", c.Desc.Name)
		}
	}, func(s transport.LinkStatus) {
		logger.Warn("link status: %s", s)
	})

	if err := tr.Start(); err != nil {
		logger.Fatal("transport start failed: %v", err)
	}
	defer tr.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go itf.Run(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	sendTakeOff(itf)
	pilotFor(ctx, itf, 3*time.Second)
	sendLanding(itf)

	select {
	case <-sigCh:
		logger.Warn("interrupted")
	case <-time.After(time.Second):
	}
	logger.Success("controller exiting")
}

func sendTakeOff(itf *cmditf.V1) {
	desc, ok := codec.FindDescriptor(codec.ProjectArdrone3, codec.ClassArdrone3Piloting, 0)
	if !ok {
		logger.Error("TakeOff descriptor missing")
		return
	}
	cmd, err := codec.Encode(desc)
	if err != nil {
		logger.Error("encode TakeOff: %v", err)
		return
	}
	_ = itf.Send(cmd, statusLogger("TakeOff"), nil)
}

func sendLanding(itf *cmditf.V1) {
	desc, ok := codec.FindDescriptor(codec.ProjectArdrone3, codec.ClassArdrone3Piloting, 1)
	if !ok {
		logger.Error("Landing descriptor missing")
		return
	}
	cmd, err := codec.Encode(desc)
	if err != nil {
		logger.Error("encode Landing: %v", err)
		return
	}
	_ = itf.Send(cmd, statusLogger("Landing"), nil)
}

func pilotFor(ctx context.Context, itf *cmditf.V1, d time.Duration) {
	desc, ok := codec.FindDescriptor(codec.ProjectArdrone3, codec.ClassArdrone3Piloting, 2)
	if !ok {
		logger.Error("PCMD descriptor missing")
		return
	}
	deadline := time.After(d)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case now := <-ticker.C:
			cmd, err := codec.Encode(desc, uint8(1), int8(0), int8(20), int8(0), int8(0), uint32(now.UnixMilli()))
			if err != nil {
				continue
			}
			_ = itf.Send(cmd, nil, nil)
		}
	}
}

func statusLogger(name string) cmditf.SendStatusFunc {
	return func(cmd *codec.Command, status cmditf.SendStatus, done bool) {
		logger.Info("%s: %s (done=%v)", name, status, done)
	}
}
