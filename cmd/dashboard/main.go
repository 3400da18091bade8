// Command dashboard is a terminal view of a doctor's appointments.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"clinic-dashboard/internal/apptclient"
	"clinic-dashboard/internal/config"
	"clinic-dashboard/internal/dashboard"
	"clinic-dashboard/internal/identity"
	"clinic-dashboard/internal/logging"
	"clinic-dashboard/internal/metrics"
	"clinic-dashboard/internal/model"
	"clinic-dashboard/internal/render"
	"clinic-dashboard/internal/tokenstore"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: dashboard <login|watch> [flags]")
		os.Exit(2)
	}

	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	switch os.Args[1] {
	case "login":
		err = runLogin(cfg, os.Args[2:])
	case "watch":
		err = runWatch(cfg, logger, os.Args[2:])
	default:
		err = fmt.Errorf("unknown subcommand %q", os.Args[1])
	}
	if err != nil {
		logger.Error("dashboard", zap.Error(err))
		os.Exit(1)
	}
}

func runLogin(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "doctor email")
	password := fs.String("password", "", "doctor password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("-email and -password are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
	defer cancel()
	tok, err := identity.NewHTTPResolver(cfg.APIBaseURL, nil).Login(ctx, *email, *password)
	if err != nil {
		return err
	}

	ts := tokenstore.Open(cfg.TokenFile)
	if err := ts.Set(tokenstore.KeyToken, tok); err != nil {
		return err
	}
	if err := ts.Set(tokenstore.KeyRole, model.RoleDoctor); err != nil {
		return err
	}
	fmt.Printf("logged in, token saved to %s\n", ts.Path())
	return nil
}

func runWatch(cfg *config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
	debounce := fs.Duration("debounce", cfg.SearchDebounce, "quiet period before a search is sent")
	timeout := fs.Duration("timeout", cfg.FetchTimeout, "per-request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var resolver identity.Resolver
	if cfg.IdentityGRPCAddr != "" {
		r, err := identity.DialGRPC(cfg.IdentityGRPCAddr)
		if err != nil {
			return err
		}
		defer r.Close()
		resolver = r
	} else {
		resolver = identity.NewHTTPResolver(cfg.APIBaseURL, nil)
	}

	dm := metrics.NewDashboardMetrics(prometheus.DefaultRegisterer)
	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	client := apptclient.New(cfg.APIBaseURL, resolver, nil, logger)
	ctrl := dashboard.New(client, tokenstore.Open(cfg.TokenFile), render.NewTable(os.Stdout, nil),
		dashboard.WithDebounce(*debounce),
		dashboard.WithTimeout(*timeout),
		dashboard.WithLogger(logger),
		dashboard.WithMetrics(dm),
	)
	defer ctrl.Close()

	ctrl.Mount()
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		quit, err := dispatch(ctrl, sc.Text())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		if quit {
			return nil
		}
	}
	return sc.Err()
}
