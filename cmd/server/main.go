package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"

	"github.com/teamcatalog/catalog-auth/internal/config"
	"github.com/teamcatalog/catalog-auth/security"
	"github.com/teamcatalog/catalog-auth/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run() error {
	c := config.New()
	displayAppname(c.GetAppName())

	encryptor, err := newEncryptor(c)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	tokens, err := newTokenProvider(c, encryptor)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: server.New(c, encryptor, tokens)}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func newEncryptor(c config.Config) (*security.Encryptor, error) {
	if keyset := c.GetEncryptionKeyset(); keyset != "" {
		return security.NewEncryptor(keyset)
	}
	log.Warn().Msg("no encryption keyset configured, state tokens and sessions will not survive a restart")
	return security.NewGeneratedEncryptor()
}

func newTokenProvider(c config.Config, encryptor *security.Encryptor) (security.TokenProvider, error) {
	if !c.IsEnabled() {
		log.Warn().Msg("security disabled, login is unavailable")
		return security.DisabledTokenProvider{}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return security.NewAzureTokenProvider(ctx, c, encryptor)
}

func listenAndServe(httpServer *http.Server) {
	log.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
