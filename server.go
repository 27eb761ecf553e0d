// finch-server: a self-hosted media server over filesystem-hosted
// movie and show libraries, speaking both the Jellyfin API and a small
// native API for the bundled web UI.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/finchmedia/finch-server/collection"
	"github.com/finchmedia/finch-server/database"
	"github.com/finchmedia/finch-server/database/sqlite"
	"github.com/finchmedia/finch-server/imageresize"
	"github.com/finchmedia/finch-server/jellyfin"
	"github.com/finchmedia/finch-server/middleware"
	"github.com/finchmedia/finch-server/webapi"
)

const (
	rescanInterval   = 15 * time.Minute
	imageCacheMaxAge = 30 * 24 * time.Hour
)

type configFile struct {
	Listen struct {
		Address string
		Port    string
		TlsCert string
		TlsKey  string
	}
	Appdir   string
	Cachedir string
	Dbdir    string
	Database struct {
		Sqlite sqlite.Config `yaml:"sqlite"`
	} `yaml:"database"`
	Logfile     string
	Collections []struct {
		ID        string
		Name      string
		Type      string
		Directory string
		BaseUrl   string
		HlsServer string
	}
	Jellyfin struct {
		ServerID           string
		ServerName         string
		AutoRegister       bool
		ImageQualityPoster int
	}
}

func loadConfig() *configFile {
	viper.SetConfigType("yaml")
	viper.SetDefault("listen.address", "::")
	viper.SetDefault("listen.port", "8096")
	viper.SetDefault("logfile", "/dev/stdout")
	viper.SetDefault("cachedir", "./cache/images")

	pflag.String("config", "finch-server.yaml", "Path to configuration file.")
	viper.BindPFlag("config", pflag.Lookup("config"))
	pflag.Parse()

	viper.SetConfigFile(viper.GetString("config"))
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("reading config: %v", err)
	}
	var config configFile
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("decoding config: %v", err)
	}
	return &config
}

func setupLogging(logfile string) {
	switch logfile {
	case "", "/dev/stdout":
	case "none":
		log.SetOutput(io.Discard)
	default:
		f, err := os.OpenFile(logfile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			log.Fatalf("opening logfile: %v", err)
		}
		log.SetOutput(f)
	}
}

func main() {
	config := loadConfig()
	setupLogging(config.Logfile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// user state store
	dbConfig := config.Database.Sqlite
	if dbConfig.Filename == "" && config.Dbdir != "" {
		dbConfig.Filename = path.Join(config.Dbdir, "tink-items.db")
	}
	db, err := database.New("sqlite", dbConfig)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer db.Close()
	db.StartBackground(ctx)

	// the library
	library := collection.New(&collection.Options{Store: db})
	for _, c := range config.Collections {
		if err := library.AddCollection(c.ID, c.Name, c.Type, c.Directory, c.BaseUrl, c.HlsServer); err != nil {
			log.Fatalf("configuring collections: %v", err)
		}
	}

	if config.Cachedir != "" {
		if err := os.MkdirAll(config.Cachedir, 0o755); err != nil {
			log.Fatalf("creating image cache dir: %v", err)
		}
	}
	resizer := imageresize.New(imageresize.Options{Cachedir: config.Cachedir})

	r := mux.NewRouter()

	webapi.New(&webapi.Options{
		Library: library,
		Resizer: resizer,
	}).RegisterHandlers(r)

	jellyfin.New(&jellyfin.Options{
		Library:            library,
		DB:                 db,
		Resizer:            resizer,
		ServerID:           config.Jellyfin.ServerID,
		ServerName:         config.Jellyfin.ServerName,
		AutoRegister:       config.Jellyfin.AutoRegister,
		ImageQualityPoster: config.Jellyfin.ImageQualityPoster,
	}).RegisterHandlers(r)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		w.Write([]byte("Healthy"))
	})
	r.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /\n"))
	})
	if config.Appdir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(config.Appdir)))
	}

	// first scan before serving, then keep rescanning in the background
	library.ScanAll(ctx)
	go library.Run(ctx, rescanInterval)
	go cleanImageCache(ctx, resizer)

	handler := httpLog(
		middleware.NormalizePath(
			corsMiddleware(
				middleware.ETag(r))))

	addr := net.JoinHostPort(config.Listen.Address, config.Listen.Port)
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		log.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if config.Listen.TlsCert != "" && config.Listen.TlsKey != "" {
		kpr, err := newKeypairReloader(ctx, config.Listen.TlsCert, config.Listen.TlsKey)
		if err != nil {
			log.Fatalf("loading TLS keypair: %v", err)
		}
		srv.TLSConfig = &tls.Config{
			MinVersion:     tls.VersionTLS12,
			GetCertificate: kpr.getCertificate,
			// range responses and long-lived streams behave better
			// without h2 flow control in the middle
			NextProtos: []string{"http/1.1"},
		}
		log.Printf("serving HTTPS on %s", addr)
		err = srv.ListenAndServeTLS("", "")
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
		return
	}

	log.Printf("serving HTTP on %s", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// corsMiddleware answers preflights and marks every response as
// cross-origin friendly; clients are media players on arbitrary
// origins.
func corsMiddleware(next http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{
			"Accept", "Authorization", "Content-Type", "Range",
			"X-Emby-Authorization", "X-Emby-Token", "X-MediaBrowser-Token",
		}),
	)(next)
}

// cleanImageCache prunes old resize-cache entries once a day.
func cleanImageCache(ctx context.Context, resizer *imageresize.Resizer) {
	t := time.NewTicker(24 * time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := resizer.Cleanup(imageCacheMaxAge); err != nil {
				log.Printf("image cache cleanup: %v", err)
			}
		}
	}
}

// keypairReloader serves the current certificate and picks up renewals
// from disk without a restart.
type keypairReloader struct {
	mu       sync.RWMutex
	cert     *tls.Certificate
	certPath string
	keyPath  string
}

func newKeypairReloader(ctx context.Context, certPath, keyPath string) (*keypairReloader, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, err
	}
	kpr := &keypairReloader{cert: &cert, certPath: certPath, keyPath: keyPath}

	go func() {
		t := time.NewTicker(15 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := kpr.reload(); err != nil {
					log.Printf("keeping old TLS certificate: %v", err)
				}
			}
		}
	}()
	return kpr, nil
}

func (kpr *keypairReloader) reload() error {
	cert, err := tls.LoadX509KeyPair(kpr.certPath, kpr.keyPath)
	if err != nil {
		return err
	}
	kpr.mu.Lock()
	kpr.cert = &cert
	kpr.mu.Unlock()
	return nil
}

func (kpr *keypairReloader) getCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	kpr.mu.RLock()
	defer kpr.mu.RUnlock()
	return kpr.cert, nil
}
