package main

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"blackjack-lite/apps/server/internal/auth"
	"blackjack-lite/apps/server/internal/gateway"
	"blackjack-lite/apps/server/internal/ledger"
	"blackjack-lite/apps/server/internal/lobby"
	"blackjack-lite/apps/server/internal/store"

	"github.com/joho/godotenv"
)

const defaultSeatBalance = 1000

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[Server] Skipping .env: %v", err)
	}

	authService, authMode, err := auth.NewServiceFromEnv()
	if err != nil {
		log.Fatalf("[Server] Failed to init auth manager: %v", err)
	}
	defer authService.Close()
	ledgerService, ledgerMode, err := ledger.NewServiceFromEnv(envOrDefault("LEDGER_MODE", authMode))
	if err != nil {
		log.Fatalf("[Server] Failed to init ledger service: %v", err)
	}
	defer ledgerService.Close()
	roundStore, storeMode, err := store.NewStoreFromEnv(envOrDefault("STORE_MODE", authMode))
	if err != nil {
		log.Fatalf("[Server] Failed to init round store: %v", err)
	}
	defer roundStore.Close()

	lby := lobby.New(roundStore, ledgerService)
	defer lby.Close()
	lby.StartSweeper(time.Minute, idleTTLFromEnv())

	gw := gateway.New(lby, authService, ledgerService, defaultSeatBalance)
	authHTTP := auth.NewHTTPHandler(authService)
	balanceHTTP := ledger.NewHTTPHandler(ledgerService, authService, defaultSeatBalance)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	authHTTP.RegisterRoutes(mux)
	balanceHTTP.RegisterRoutes(mux)

	addr := listenAddrFromEnv()
	log.Printf("[Server] Auth mode: %s", authMode)
	log.Printf("[Server] Ledger mode: %s", ledgerMode)
	log.Printf("[Server] Store mode: %s", storeMode)
	log.Printf("[Server] Starting WebSocket server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("[Server] Failed to start: %v", err)
	}
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func listenAddrFromEnv() string {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		return ":" + port
	}
	return ":8080"
}

func idleTTLFromEnv() time.Duration {
	raw := strings.TrimSpace(os.Getenv("ROOM_IDLE_TTL"))
	if raw == "" {
		return 10 * time.Minute
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil || ttl <= 0 {
		log.Printf("[Server] Invalid ROOM_IDLE_TTL %q, using default", raw)
		return 10 * time.Minute
	}
	return ttl
}
