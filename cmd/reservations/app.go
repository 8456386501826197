package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"reservations/internal/app/commands"
	availabilityapp "reservations/internal/app/handlers/availability"
	bookingapp "reservations/internal/app/handlers/booking"
	listingapp "reservations/internal/app/handlers/listings"
	meapp "reservations/internal/app/handlers/me"
	reviewsapp "reservations/internal/app/handlers/reviews"
	"reservations/internal/app/middleware"
	"reservations/internal/app/outbox"
	"reservations/internal/app/policies"
	"reservations/internal/app/queries"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	domainreviews "reservations/internal/domain/reviews"
	"reservations/internal/infra/broker/kafka"
	"reservations/internal/infra/cache"
	"reservations/internal/infra/config"
	mongodb "reservations/internal/infra/db/mongo"
	ginserver "reservations/internal/infra/http/gin"
	"reservations/internal/infra/kv"
	"reservations/internal/infra/kv/rediskv"
	"reservations/internal/infra/lock"
	"reservations/internal/infra/obs"
	infraoutbox "reservations/internal/infra/outbox"
	"reservations/internal/infra/storage/memory"
)

type storage struct {
	listings    domainlistings.ListingRepository
	bookings    domainbooking.Repository
	reviews     domainreviews.Repository
	outbox      outbox.Outbox
	source      infraoutbox.Source
	idempotency middleware.IdempotencyStore
}

type application struct {
	handlers ginserver.Handlers
	health   obs.HealthHandlers
	cfg      config.Config

	invalidator    policies.CacheInvalidator
	source         infraoutbox.Source
	memoryListings *memory.ListingRepository

	closers []func(context.Context) error
	wg      sync.WaitGroup
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{cfg: cfg, health: obs.HealthHandlers{Checks: map[string]obs.Check{}}}

	kvStore, locker, err := app.buildKV(ctx, cfg, logger)
	if err != nil {
		app.close(logger)
		return nil, err
	}
	store, err := app.buildStorage(ctx, cfg, kvStore)
	if err != nil {
		app.close(logger)
		return nil, err
	}
	app.source = store.source

	responseCache := cache.NewStore(kvStore, cfg.CacheMaxTTL, logger)
	invalidator := cache.NewInvalidator(responseCache, logger)
	app.invalidator = invalidator
	encoder := outbox.JSONEventEncoder{IDGenerator: uuid.NewString}
	lockOptions := policies.LockOptions{TTL: cfg.LockTTL, WaitTimeout: cfg.LockWait, RetryInterval: cfg.LockRetry}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, bookingapp.CreateReservationCommand{}.Key(), &bookingapp.CreateReservationHandler{
		Bookings:    store.bookings,
		Listings:    store.listings,
		Locker:      locker,
		LockOptions: lockOptions,
		Cache:       invalidator,
		Outbox:      store.outbox,
		Encoder:     encoder,
		Logger:      logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.CancelReservationCommand{}.Key(), &bookingapp.CancelReservationHandler{
		Bookings: store.bookings,
		Cache:    invalidator,
		Outbox:   store.outbox,
		Encoder:  encoder,
		Logger:   logger,
	})
	reviewDeps := reviewsapp.Deps{
		Bookings: store.bookings,
		Listings: store.listings,
		Reviews:  store.reviews,
		Cache:    invalidator,
		Outbox:   store.outbox,
		Encoder:  encoder,
		Logger:   logger,
	}
	commands.RegisterHandler(commandBus, reviewsapp.SubmitReviewCommand{}.Key(), &reviewsapp.SubmitReviewHandler{Deps: reviewDeps})
	commands.RegisterHandler(commandBus, reviewsapp.DeleteReviewCommand{}.Key(), &reviewsapp.DeleteReviewHandler{Deps: reviewDeps})
	hostDeps := listingapp.HostDeps{
		Listings: store.listings,
		Cache:    invalidator,
		Outbox:   store.outbox,
		Encoder:  encoder,
		Logger:   logger,
	}
	commands.RegisterHandler(commandBus, listingapp.CreateHostListingCommand{}.Key(), &listingapp.CreateHostListingHandler{HostDeps: hostDeps})
	commands.RegisterHandler(commandBus, listingapp.UpdateHostListingCommand{}.Key(), &listingapp.UpdateHostListingHandler{HostDeps: hostDeps})
	commands.RegisterHandler(commandBus, listingapp.SetHostListingActiveCommand{}.Key(), &listingapp.SetHostListingActiveHandler{HostDeps: hostDeps})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, meapp.ListReservationsQuery{}.Key(), &meapp.ListReservationsHandler{
		Bookings: store.bookings, Listings: store.listings, Reviews: store.reviews, Logger: logger,
	})
	queries.RegisterHandler(queryBus, availabilityapp.BookedRangesQuery{}.Key(), &availabilityapp.BookedRangesHandler{
		Bookings: store.bookings, Listings: store.listings,
	})
	queries.RegisterHandler(queryBus, listingapp.SearchCatalogQuery{}.Key(), &listingapp.SearchCatalogHandler{Listings: store.listings})
	queries.RegisterHandler(queryBus, listingapp.GetListingQuery{}.Key(), &listingapp.GetListingHandler{Listings: store.listings})
	queries.RegisterHandler(queryBus, listingapp.HostListingsQuery{}.Key(), &listingapp.HostListingsHandler{Listings: store.listings})
	queries.RegisterHandler(queryBus, reviewsapp.ListListingReviewsQuery{}.Key(), &reviewsapp.ListListingReviewsHandler{Reviews: store.reviews})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Logging(logger),
		middleware.Validation(middleware.SelfValidating{}),
		middleware.Idempotency(store.idempotency, nil, logger),
	)
	queryBusWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryLogging(logger),
		middleware.QueryValidation(middleware.SelfValidating{}),
	)

	respond := ginserver.Responder{Production: cfg.Production(), Logger: logger}
	auth := ginserver.AuthMiddleware{Secret: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer, Logger: logger}
	app.handlers = ginserver.Handlers{
		Booking:        &ginserver.BookingHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Respond: respond},
		Availability:   &ginserver.AvailabilityHandler{Queries: queryBusWithMiddleware, Respond: respond},
		Listing:        &ginserver.ListingHandler{Queries: queryBusWithMiddleware, Respond: respond},
		HostListing:    &ginserver.HostListingHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Respond: respond},
		Reviews:        &ginserver.ReviewsHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Respond: respond},
		AuthMiddleware: auth.Handle,
		Cache:          responseCache,
	}
	if cfg.RateLimitMax > 0 {
		app.handlers.RateLimit = ginserver.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow).Handle
	}
	return app, nil
}

// buildKV selects the store shared by locks, the response cache and, for the
// memory driver, idempotency records.
func (a *application) buildKV(ctx context.Context, cfg config.Config, logger *slog.Logger) (kv.Store, policies.AvailabilityLocker, error) {
	if cfg.CacheDriver != "redis" {
		logger.Warn("using in-process kv store; locks are not shared between instances")
		store := memory.NewKV(nil)
		return store, &lock.Manager{Store: store, Logger: logger}, nil
	}
	redisCfg := rediskv.DefaultConfig()
	redisCfg.Addr = cfg.RedisAddr
	redisCfg.Password = cfg.RedisPassword
	redisCfg.DB = cfg.RedisDB
	if cfg.RedisPoolSize > 0 {
		redisCfg.PoolSize = cfg.RedisPoolSize
	}
	if cfg.RedisDial > 0 {
		redisCfg.DialTimeout = cfg.RedisDial
	}
	if cfg.RedisRetries > 0 {
		redisCfg.MaxRetries = cfg.RedisRetries
	}
	client, err := rediskv.NewClient(ctx, redisCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	a.health.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return rediskv.New(client), lock.NewRedis(client, logger), nil
}

func (a *application) buildStorage(ctx context.Context, cfg config.Config, kvStore kv.Store) (storage, error) {
	if cfg.StorageDriver != "mongo" {
		listings := memory.NewListingRepository()
		box := memory.NewOutbox()
		a.memoryListings = listings
		return storage{
			listings:    listings,
			bookings:    memory.NewBookingRepository(),
			reviews:     memory.NewReviewRepository(),
			outbox:      box,
			source:      box,
			idempotency: kv.NewIdempotencyStore(kvStore, cfg.IdempotencyTTL),
		}, nil
	}

	client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return storage{}, fmt.Errorf("connect mongo: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	a.health.Checks["mongo"] = client.Ping

	var s storage
	listings, err := mongodb.NewListingRepository(ctx, client.DB)
	if err != nil {
		return storage{}, err
	}
	bookings, err := mongodb.NewBookingRepository(ctx, client.DB)
	if err != nil {
		return storage{}, err
	}
	reviews, err := mongodb.NewReviewRepository(ctx, client.DB)
	if err != nil {
		return storage{}, err
	}
	box, err := infraoutbox.NewStore(ctx, client.DB)
	if err != nil {
		return storage{}, err
	}
	idem, err := mongodb.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
	if err != nil {
		return storage{}, err
	}
	s.listings, s.bookings, s.reviews = listings, bookings, reviews
	s.outbox, s.source, s.idempotency = box, box, idem
	return s, nil
}

// startBackground runs the outbox relay and the listing-events consumer when
// brokers are configured.
func (a *application) startBackground(ctx context.Context, logger *slog.Logger) {
	if len(a.cfg.KafkaBrokers) == 0 {
		logger.Info("kafka disabled; domain events stay in the outbox")
		return
	}
	producer, err := kafka.NewProducer(a.cfg.KafkaBrokers, kafka.ProducerConfig{ClientID: "reservations"})
	if err != nil {
		logger.Error("kafka producer init failed", "error", err)
		return
	}
	a.closers = append(a.closers, func(context.Context) error { return producer.Close() })
	worker := &infraoutbox.Worker{
		Store:       a.source,
		Producer:    producer,
		Logger:      logger,
		Interval:    a.cfg.OutboxPollInterval,
		TopicPrefix: a.cfg.KafkaTopicPrefix,
		Backoff:     a.cfg.RetryBackoff,
	}
	a.goRun(ctx, logger, "outbox worker", worker.Run)

	consumer, err := kafka.NewConsumer(a.cfg.KafkaBrokers, a.cfg.KafkaConsumerGroup,
		&kafka.ListingEventsHandler{Cache: a.invalidator, Logger: logger}, logger)
	if err != nil {
		logger.Error("kafka consumer init failed", "error", err)
		return
	}
	a.closers = append(a.closers, func(context.Context) error { return consumer.Close() })
	topic := a.cfg.KafkaTopicPrefix + kafka.ListingEventsTopic
	a.goRun(ctx, logger, "listing events consumer", func(ctx context.Context) error {
		return consumer.Run(ctx, []string{topic})
	})
}

func (a *application) goRun(ctx context.Context, logger *slog.Logger, name string, fn func(context.Context) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error(name+" stopped", "error", err)
		}
	}()
}

func (a *application) wait() {
	a.wg.Wait()
}

func (a *application) close(logger *slog.Logger) {
	ctx := context.Background()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("shutdown step failed", "error", err)
		}
	}
	a.closers = nil
}
