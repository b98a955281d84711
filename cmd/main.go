package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"lsmkv/internal/config"
	"lsmkv/internal/server"
	"lsmkv/internal/storage"
	"lsmkv/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config file")
	dir := flag.String("dir", config.DefaultBasePath, "data directory (ignored when -config is set)")
	flag.Parse()

	var conf *config.Config
	if *configPath != "" {
		c, err := config.FromFile(*configPath)
		if err != nil {
			logger.Fatal("load config", "path", *configPath, "error", err)
		}
		conf = c
	} else {
		conf = config.New(*dir)
	}

	logger.InitLogger(conf.LogLevel, conf.LogFile)
	defer logger.Sync()

	db, err := storage.Open(conf)
	if err != nil {
		logger.Fatal("open engine", "dir", conf.BasePath, "error", err)
	}

	// flush the memtable on shutdown so acknowledged writes survive
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig.String())
		if err := db.Close(); err != nil {
			logger.Error("close engine", "error", err)
		}
		logger.Sync()
		os.Exit(0)
	}()

	srv := server.New(db)
	if err := srv.Run(conf.ListenAddr); err != nil {
		_ = db.Close()
		logger.Fatal("server stopped", "error", err)
	}
}
