package logging

import "log"

func Info(msg string, args ...interface{}) {
	log.Printf("[INFO] "+msg, args...)
}

func Error(msg string, args ...interface{}) {
	log.Printf("[ERROR] "+msg, args...)
}

func Debug(msg string, args ...interface{}) {
	log.Printf("[DEBUG] "+msg, args...)
}

// HTTP logs gateway and websocket traffic.
func HTTP(msg string, args ...interface{}) {
	log.Printf("[HTTP] "+msg, args...)
}

func Store(msg string, args ...interface{}) {
	log.Printf("[STORE] "+msg, args...)
}

func Startup(msg string, args ...interface{}) {
	log.Printf("[STARTUP] "+msg, args...)
}

func Shutdown(msg string, args ...interface{}) {
	log.Printf("[SHUTDOWN] "+msg, args...)
}
