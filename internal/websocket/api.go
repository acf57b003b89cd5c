package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// MetricsProvider определяет метод для получения метрик брокера
type MetricsProvider interface {
	GetMetrics() map[string]interface{}
}

// WebSocketMetricsHandler возвращает обработчик для получения метрик брокера
func WebSocketMetricsHandler(provider MetricsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if provider == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		metrics := provider.GetMetrics()
		metrics["generated_at"] = time.Now().Format(time.RFC3339)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(metrics); err != nil {
			log.Printf("[Broker] Error encoding WebSocket metrics: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
}

// WebSocketHealthCheckHandler возвращает обработчик для проверки состояния брокера
func WebSocketHealthCheckHandler(provider MetricsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		statusCode := http.StatusOK
		subscribers := 0

		if provider != nil {
			if n, ok := provider.GetMetrics()["subscribers"].(int); ok {
				subscribers = n
			}
		} else {
			status = "unavailable"
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      status,
			"subscribers": subscribers,
			"timestamp":   time.Now().Format(time.RFC3339),
		}); err != nil {
			log.Printf("[Broker] Error encoding WebSocket health check response: %v", err)
		}
	}
}
