package authflow

import (
	"log"

	"github.com/tus-lockers/locker-backend/internal/store"
)

func logTransition(flow store.Flow, phase store.Phase, authID string) {
	log.Printf("[authflow] %s session=%s phase=%s", flow, authID, phase)
}

func logError(flow store.Flow, operation string, err error) {
	log.Printf("[authflow] %s %s error: %v", flow, operation, err)
}
