// Command arsdkd is an example device-side responder: it accepts the net
// handshake, then logs the commands it receives and sends an attitude
// state event every 500 ms, mirroring the shape of a real vehicle's
// firmware loop closely enough to exercise every layer of the stack end
// to end.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	nethttp "net/http"

	"github.com/arsdk-go/arsdk/pkg/arsdk/cmditf"
	"github.com/arsdk-go/arsdk/pkg/arsdk/codec"
	"github.com/arsdk-go/arsdk/pkg/arsdk/handshake"
	"github.com/arsdk-go/arsdk/pkg/arsdk/transport"
	arsdknet "github.com/arsdk-go/arsdk/pkg/arsdk/transport/net"
	"github.com/arsdk-go/arsdk/pkg/arsdk/peer"
	"github.com/arsdk-go/arsdk/pkg/logger"
)

const version = "1.0.0"

type config struct {
	Host          string
	DiscoverPort  int
	RxPort        int
	TxPort        int
	MetricsAddr   string
}

func loadConfig() config {
	cfg := config{
		Host:         "0.0.0.0",
		DiscoverPort: 44444,
		RxPort:       54321,
		TxPort:       43210,
		MetricsAddr:  ":9101",
	}
	if v := os.Getenv("ARSDKD_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("ARSDKD_DISCOVER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DiscoverPort = n
		}
	}
	if v := os.Getenv("ARSDKD_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	return cfg
}

func main() {
	logger.Banner("arsdkd - drone-side command responder", version)
	cfg := loadConfig()

	mgr := peer.NewManager(nil)
	registry := prometheus.NewRegistry()
	registry.MustRegister(peer.NewLinkQualityCollector(mgr))

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.DiscoverPort))
	if err != nil {
		logger.Fatal("discovery listen failed: %v", err)
	}
	logger.Info("listening for handshake on %s:%d", cfg.Host, cfg.DiscoverPort)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		nethttp.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		logger.Info("metrics listening on %s", cfg.MetricsAddr)
		_ = nethttp.ListenAndServe(cfg.MetricsAddr, nil)
	}()

	for {
		var req handshake.Request
		err := handshake.ServeNet(ln, func(r handshake.Request) handshake.Response {
			req = r
			return handshake.Response{Status: 0, C2DPort: cfg.TxPort, QoSMode: r.QoSMode}
		})
		if err != nil {
			logger.Warn("handshake failed: %v", err)
			select {
			case <-sigCh:
				return
			default:
				continue
			}
		}
		go serveSession(cfg, req, mgr)
	}
}

func serveSession(cfg config, req handshake.Request, mgr *peer.Manager) {
	p, err := mgr.Register(req.ControllerName)
	if err != nil {
		logger.Error("peer registration failed: %v", err)
		return
	}
	defer mgr.Unregister(p.Handle)

	tr := arsdknet.New(arsdknet.Config{
		LocalAddr:  cfg.Host,
		RxPort:     cfg.TxPort,
		TxPort:     req.D2CPort,
		RemoteAddr: cfg.Host,
		QoS:        req.QoSMode == 1,
	})

	recvd := make(chan *codec.Command, 16)
	itf := cmditf.NewV1(tr, append(cmditf.DefaultC2DQueues(), cmditf.DefaultD2CQueues()...), func(c *codec.Command) {
		recvd <- c
	}, func(s transport.LinkStatus) {
		mgr.SetLinkStatus(p.Handle, s)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := tr.Start(); err != nil {
		logger.Error("transport start failed: %v", err)
		return
	}
	defer tr.Stop()

	go itf.Run(ctx)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-recvd:
			handleCommand(itf, cmd)
		case <-ticker.C:
			reportAttitude(itf)
		}
	}
}

func handleCommand(itf *cmditf.V1, cmd *codec.Command) {
	if cmd.Desc == nil {
		return
	}
	logger.Info("received %s", cmd.Desc.Name)
}

func reportAttitude(itf *cmditf.V1) {
	desc, ok := codec.FindDescriptor(codec.ProjectArdrone3, codec.ClassArdrone3PilotingState, 0)
	if !ok {
		return
	}
	cmd, err := codec.Encode(desc, float32(0), float32(0), float32(0))
	if err != nil {
		return
	}
	_ = itf.Send(cmd, nil, nil)
}
