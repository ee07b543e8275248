package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"medistore/m/internal/api"
	"medistore/m/internal/config"
	"medistore/m/internal/database"
	"medistore/m/internal/migrations"
	"medistore/m/internal/payment"
	"medistore/m/internal/repository"
	"medistore/m/internal/seed"
	"medistore/m/internal/service"
	"medistore/m/internal/upload"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("unable to build logger: %v", err)
	}
	defer logger.Sync()

	db := database.Connect(cfg.DatabaseDSN)
	defer db.Close()

	migrations.Run(db)
	seed.LoadMedicines(db, "assets/medicines.csv", logger)

	prescriptions, err := upload.NewPrescriptionStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal("unable to prepare upload directory", zap.Error(err))
	}

	medicines := repository.NewMedicines(db)
	orders := repository.NewOrders(db)
	users := repository.NewUsers(db)
	testimonials := repository.NewTestimonials(db)

	gateway := payment.NewSimulator(cfg.PaymentSuccessRate, 2*time.Second, logger)
	orderSvc := service.NewOrderService(medicines, orders, gateway, 10*time.Second, logger)
	reportSvc := service.NewReportService(db)

	handler := api.New(api.Deps{
		Users:         users,
		Medicines:     medicines,
		Orders:        orders,
		Testimonials:  testimonials,
		OrderService:  orderSvc,
		ReportService: reportSvc,
		Prescriptions: prescriptions,
		Secret:        cfg.Secret,
		Production:    cfg.Production,
		Log:           logger,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("storefront server starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}
