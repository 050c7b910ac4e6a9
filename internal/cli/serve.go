package cli

import (
	"github.com/spf13/cobra"

	"github.com/pkgfoundry/wheelscan/internal/server"
)

// serveCommand runs the HTTP inspection service.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		redisAddr string
		mongoURI  string
		mongoDB   string
		storeDir  string
		maxUpload int64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP inspection service",
		Long: `Run an HTTP service that inspects uploaded wheels.

POST an archive to /v1/inspect to receive its report. Responses are
cached by archive digest, in Redis when --redis is set. Reports persist
across requests when --mongo or --store is configured. GET /v1/schema
serves the report schemas and GET /healthz reports backend health.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config()
			if !cmd.Flags().Changed("addr") && cfg.Server.Addr != "" {
				addr = cfg.Server.Addr
			}
			if !cmd.Flags().Changed("redis") && cfg.Server.Redis != "" {
				redisAddr = cfg.Server.Redis
			}
			if !cmd.Flags().Changed("mongo") && cfg.Server.Mongo != "" {
				mongoURI = cfg.Server.Mongo
			}
			if !cmd.Flags().Changed("mongo-db") && cfg.Server.MongoDB != "" {
				mongoDB = cfg.Server.MongoDB
			}
			if !cmd.Flags().Changed("store") && cfg.Server.StoreDir != "" {
				storeDir = cfg.Server.StoreDir
			}
			if !cmd.Flags().Changed("max-upload") && cfg.Server.MaxUploadMB > 0 {
				maxUpload = cfg.Server.MaxUploadMB
			}
			ttl, err := cfg.CacheTTL()
			if err != nil {
				return err
			}

			srv, err := server.New(cmd.Context(), server.Config{
				Addr:           addr,
				Redis:          redisAddr,
				Mongo:          mongoURI,
				MongoDB:        mongoDB,
				StoreDir:       storeDir,
				MaxUploadBytes: maxUpload << 20,
				CacheTTL:       ttl,
			}, c.Logger)
			if err != nil {
				return err
			}

			printInfo("Listening on %s", addr)
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address for the report cache (host:port)")
	cmd.Flags().StringVar(&mongoURI, "mongo", "", "MongoDB connection URI for report persistence")
	cmd.Flags().StringVar(&mongoDB, "mongo-db", server.DefaultMongoDB, "MongoDB database name")
	cmd.Flags().StringVar(&storeDir, "store", "", "directory for report persistence (ignored with --mongo)")
	cmd.Flags().Int64Var(&maxUpload, "max-upload", server.DefaultMaxUpload>>20, "maximum upload size in MiB")

	return cmd
}
