package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ReasonCrashLoop is the waiting reason reported by the kubelet for pods
// stuck in a restart loop.
const ReasonCrashLoop = "CrashLoopBackOff"

// Detection is one offending container found during a scan tick. It is
// transient: only detections that cross the cooldown gate are persisted,
// as Events.
type Detection struct {
	Time      time.Time `json:"time"`
	Namespace string    `json:"namespace"`
	Pod       string    `json:"pod"`
	Container string    `json:"container"`
	Restarts  int32     `json:"restarts"`
	Message   string    `json:"message"`
	Reason    string    `json:"reason"`
}

// Event is a Detection plus the delivery outcome of its alert.
type Event struct {
	Detection
	EmailSent bool `json:"email_sent"`
}

// AlertState maps fingerprint -> epoch seconds of the last successful
// notification. Only successful sends advance it.
type AlertState map[string]int64

// Fingerprint derives the dedup identity of a crash-loop occurrence.
// Restart count and message are noise, not identity: the same
// (namespace, pod, container, reason) tuple always hashes the same.
// Pod and namespace names are restricted to DNS charsets, so the plain
// separator cannot collide.
func Fingerprint(namespace, pod, container, reason string) string {
	h := sha256.Sum256([]byte(namespace + "|" + pod + "|" + container + "|" + reason))
	return hex.EncodeToString(h[:])
}
