package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/timeslot-reservation/internal/config"
	"github.com/iliyamo/timeslot-reservation/internal/database"
	"github.com/iliyamo/timeslot-reservation/internal/handler"
	"github.com/iliyamo/timeslot-reservation/internal/queue"
	"github.com/iliyamo/timeslot-reservation/internal/repository"
	"github.com/iliyamo/timeslot-reservation/internal/router"
	"github.com/iliyamo/timeslot-reservation/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	store := repository.NewSQLStore(db)
	svc := service.NewReservationService(store)

	slots := handler.NewTimeSlotHandler(svc)
	slots.Publish = func(c echo.Context, ev queue.ReservationConfirmedEvent) {
		// Best effort: a broker outage must not fail the reservation.
		if err := queue.PublishReservationConfirmed(c.Request().Context(), ev); err != nil {
			log.Printf("publish confirmed event: %v", err)
		}
	}
	auth := handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db))
	admin := handler.NewAdminHandler(store.Slots(), store.Reservations())

	rdb := config.NewRedisClient() // nil when Redis is unreachable; middleware fails open

	go func() {
		if err := queue.StartConfirmedConsumer(); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, auth, cfg.JWTSecret)
	router.RegisterTimeSlots(e, slots, cfg.JWTSecret, rdb)
	router.RegisterAdmin(e, admin, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
