package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tapgate/tapgate/internal/admission"
	"github.com/tapgate/tapgate/internal/config"
	"github.com/tapgate/tapgate/internal/fees"
	"github.com/tapgate/tapgate/internal/funding"
	"github.com/tapgate/tapgate/internal/gateway"
	"github.com/tapgate/tapgate/internal/ledger"
	"github.com/tapgate/tapgate/internal/middleware"
	"github.com/tapgate/tapgate/internal/notification"
	"github.com/tapgate/tapgate/internal/pass"
	"github.com/tapgate/tapgate/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	var (
		ledgerBackend ledger.Ledger
		admissionRepo admission.Repository
		passRepo      pass.Repository
		walletRepo    wallet.Repository
		gatewayRepo   gateway.Repository
		feeRepo       fees.Repository
		optionRepo    pass.OptionRepository
	)
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
		admissionRepo = admission.NewPostgresRepository(d.DB)
		passRepo = pass.NewPostgresRepository(d.DB)
		walletRepo = wallet.NewPostgresRepository(d.DB)
		gatewayRepo = gateway.NewPostgresRepository(d.DB)
		feeRepo = fees.NewPostgresRepository(d.DB)
		optionRepo = pass.NewPostgresOptionRepository(d.DB)
	} else {
		// The in-memory ledger backs the admission and pass read paths too, so
		// dev mode sees one consistent store.
		mem := ledger.NewInMemory()
		ledgerBackend = mem
		admissionRepo = mem
		passRepo = mem
		walletRepo = wallet.NewMemoryRepository()
		gatewayRepo, feeRepo, optionRepo = seedDevFixtures()
	}

	walletSvc := wallet.NewService(walletRepo, ledgerBackend)
	notifier := notification.NewLoggerNotifier(d.Logger)
	policy := fees.NewPolicy(feeRepo)
	passSvc := pass.NewService(optionRepo, passRepo, ledgerBackend, notifier)
	admissionSvc := admission.NewService(walletSvc, gatewayRepo, policy, passSvc, ledgerBackend, admissionRepo, d.Logger)
	fundingSvc, err := funding.NewService(ledgerBackend, walletSvc, nil, notifier)
	if err != nil {
		return err
	}

	walletHandler := wallet.NewHandler(walletSvc, ledgerBackend)
	passHandler := pass.NewHandler(passSvc)
	admissionHandler := admission.NewHandler(admissionSvc)
	fundingHandler := funding.NewHandler(fundingSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	scanLimiter := middleware.ScanRateLimit(d.Cache, d.Cfg.ScanRateLimit, d.Cfg.ScanRateWindow)
	var idem fiber.Handler
	if d.Cache != nil {
		idem = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}

	RegisterWalletRoutes(api, walletHandler)
	RegisterAdmissionRoutes(api, admissionHandler, scanLimiter)
	RegisterPassRoutes(api, passHandler)
	RegisterFundingRoutes(api, fundingHandler, idem)

	return nil
}

// seedDevFixtures provides a venue, gates, fee schedule and a pass option so
// the in-memory mode is usable out of the box.
func seedDevFixtures() (gateway.Repository, fees.Repository, pass.OptionRepository) {
	gw := gateway.NewMemoryRepository()
	gw.AddVenue(gateway.Venue{ID: "venue-demo", Name: "Demo Hall", DailyEntryCap: 0})
	gw.AddPoint(gateway.Point{ID: "gate-front", VenueID: "venue-demo", Name: "Front Door", Kind: gateway.KindEntrance, Enabled: true, AcceptsWallet: true})
	gw.AddPoint(gateway.Point{ID: "gate-service", VenueID: "venue-demo", Name: "Service Door", Kind: gateway.KindEntrance, Enabled: false, AcceptsWallet: true})

	fr := fees.NewMemoryRepository()
	fr.SetConfig(fees.Config{
		VenueID:            fees.DefaultVenueID,
		Version:            1,
		InitialEntryFee:    1_000,
		ReentryFee:         0,
		PlatformReentryFee: 100,
		UpdatedAt:          time.Now().UTC(),
	})
	fr.SetDistribution(fees.Distribution{
		VenueID:     fees.DefaultVenueID,
		Version:     1,
		PlatformPct: 20,
		VenuePct:    60,
		PoolPct:     10,
		PromoterPct: 10,
	})

	opts := pass.NewMemoryOptionRepository()
	opts.AddOption(pass.Option{ID: "night-demo", VenueID: "venue-demo", Name: "Night Pass", Price: 2_500, Validity: 8 * time.Hour})

	return gw, fr, opts
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
