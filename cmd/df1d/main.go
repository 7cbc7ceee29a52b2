// Command df1d is the DF1 link-layer daemon: it multiplexes many TCP
// clients onto one serial line per configured connection.
// Config parsing, flag handling, and process lifecycle sit outside the
// core engine (internal/df1) on purpose; this file is the collaborator
// that wires them together.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/jvalenzuela/df1d/internal/df1"
	"github.com/jvalenzuela/df1d/internal/dfcfg"
	"github.com/jvalenzuela/df1d/internal/dwlog"
)

var (
	flagConfig     = pflag.StringP("config", "c", "/etc/df1d.yaml", "path to the connection configuration file")
	flagDebug      = pflag.BoolP("debug", "d", false, "enable debug-level logging")
	flagForeground = pflag.BoolP("foreground", "f", false, "run in the foreground; df1d never daemonizes itself, so this only suppresses a startup notice")
	flagVersion    = pflag.BoolP("version", "v", false, "print the version and exit")
)

const version = "0.1.0"

func main() {
	pflag.Parse()
	if *flagVersion {
		fmt.Println("df1d", version)
		return
	}

	level := log.InfoLevel
	if *flagDebug {
		level = log.DebugLevel
	}
	logger := dwlog.New(os.Stderr, level)

	if !*flagForeground {
		logger.Infof("daemonizing is left to the process supervisor; running in foreground")
	}

	conns, err := dfcfg.Load(*flagConfig)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGINT)

	var wg sync.WaitGroup
	engines := make([]*df1.Engine, 0, len(conns))
	for _, cc := range conns {
		e, err := startConnection(cc, logger)
		if err != nil {
			logger.Errorf("connection %s: %v", cc.Name, err)
			continue
		}
		engines = append(engines, e)
		wg.Add(1)
		go func(e *df1.Engine) {
			defer wg.Done()
			if err := e.Run(); err != nil {
				logger.Errorf("connection %s: %v", e.Conn.Name, err)
			}
		}(e)
	}

	if len(engines) == 0 {
		logger.Errorf("no connections started")
		os.Exit(1)
	}

	sig := <-sigCh
	logger.Infof("received %v, shutting down", sig)
	for _, e := range engines {
		e.Stop()
	}
	wg.Wait()
}

func startConnection(cc dfcfg.ConnectionConfig, logger *dwlog.Logger) (*df1.Engine, error) {
	connLog := logger.With("conn", cc.Name)
	conn := df1.New(cc.ToDF1(), connLog)

	tty, err := df1.OpenSerial(cc.Device, cc.Baud)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort("", strconv.Itoa(cc.Port))
	e, err := df1.NewEngine(conn, tty, addr)
	if err != nil {
		tty.Close()
		return nil, err
	}
	connLog.Infof("listening on %s, serial %s at %d baud", addr, cc.Device, cc.Baud)
	return e, nil
}
