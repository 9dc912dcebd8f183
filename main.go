package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/herald-fm/herald/config"
	"github.com/herald-fm/herald/db"
	"github.com/herald-fm/herald/service/discord"
	"github.com/herald-fm/herald/service/discovery"
	"github.com/herald-fm/herald/service/lastfm"
	"github.com/herald-fm/herald/service/scheduler"
	"github.com/herald-fm/herald/service/webhook"
)

func main() {
	config.Load()

	dbPath := viper.GetString("db.path")
	if err := ensureDataDir(dbPath); err != nil {
		log.Fatalf("Error creating database directory: %v", err)
	}

	database, err := db.New(dbPath)
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}

	if err := database.Initialize(); err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	lastfmService := lastfm.New(viper.GetString("lastfm.api_url"), nil)
	discoveryService := discovery.New(database, lastfmService, nil)

	webhookService := webhook.New(viper.GetString("webhook.url"), nil)
	// Single settings-change listener; everything else reads the endpoint
	// through webhookService.CurrentEndpoint.
	viper.OnConfigChange(func(in fsnotify.Event) {
		webhookService.SetEndpoint(viper.GetString("webhook.url"))
	})
	viper.WatchConfig()

	var resolver scheduler.Resolver
	if token := viper.GetString("discord.bot_token"); token != "" {
		resolver = discord.New(viper.GetString("discord.api_url"), token)
	} else {
		log.Println("No Discord bot token configured; notifications will use Last.fm usernames")
	}

	sweeper := scheduler.New(database, discoveryService, webhookService, resolver, nil)
	sweeper.Start(context.Background(), time.Duration(viper.GetInt("scheduler.interval_hours"))*time.Hour)

	app := &application{
		logger:    log.Default(),
		db:        database,
		discovery: discoveryService,
	}

	serverAddr := fmt.Sprintf("%s:%s", viper.GetString("server.host"), viper.GetString("server.port"))
	fmt.Printf("Server running at: http://%s\n", serverAddr)
	log.Fatal(http.ListenAndServe(serverAddr, app.routes()))
}

// ensureDataDir creates the directory holding the database file.
func ensureDataDir(dbPath string) error {
	return os.MkdirAll(filepath.Dir(dbPath), 0o755)
}
