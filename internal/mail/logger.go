package mail

import (
	"log"
	"time"
)

// LogSend logs a delivered message.
func LogSend(b Backend, to, subject string, duration time.Duration) {
	log.Printf("[mail] %s sent to=%s subject=%q duration=%dms", b, to, subject, duration.Milliseconds())
}

// LogError logs a failed delivery.
func LogError(b Backend, to string, err error) {
	log.Printf("[mail] %s send to=%s error: %v", b, to, err)
}
