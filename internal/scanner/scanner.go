package scanner

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/viniciushammett/k8s-crashloop-monitor/internal/logger"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/model"
)

// maxMessageLen truncates kubelet back-off messages before they reach the
// event log.
const maxMessageLen = 500

// Scanner lists pods and extracts containers waiting in CrashLoopBackOff.
type Scanner struct {
	log        *logger.Logger
	cs         kubernetes.Interface
	namespaces []string // empty = all
}

func New(log *logger.Logger, cs kubernetes.Interface, namespaces []string) *Scanner {
	return &Scanner{log: log, cs: cs, namespaces: namespaces}
}

// Scan returns one Detection per crash-looping container, in namespace
// order for a configured allow-list. Any list error aborts the whole scan:
// the monitor loop skips the tick rather than acting on a partial view.
func (s *Scanner) Scan(ctx context.Context) ([]model.Detection, error) {
	namespaces := s.namespaces
	if len(namespaces) == 0 {
		namespaces = []string{metav1.NamespaceAll}
	}

	var out []model.Detection
	now := time.Now().UTC().Truncate(time.Second)
	for _, ns := range namespaces {
		pods, err := s.cs.CoreV1().Pods(ns).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, fmt.Errorf("list pods in %q: %w", nsLabel(ns), err)
		}
		for i := range pods.Items {
			out = append(out, s.collect(&pods.Items[i], now)...)
		}
	}
	return out, nil
}

// collect inspects regular and init container statuses of one pod.
func (s *Scanner) collect(pod *corev1.Pod, now time.Time) []model.Detection {
	var dets []model.Detection
	statuses := append(append([]corev1.ContainerStatus{}, pod.Status.ContainerStatuses...), pod.Status.InitContainerStatuses...)
	for _, st := range statuses {
		w := st.State.Waiting
		if w == nil || w.Reason != model.ReasonCrashLoop {
			continue
		}
		s.log.Debug().Str("ns", pod.Namespace).Str("pod", pod.Name).Str("container", st.Name).
			Int32("restarts", st.RestartCount).Msg("crashloop container")
		dets = append(dets, model.Detection{
			Time:      now,
			Namespace: pod.Namespace,
			Pod:       pod.Name,
			Container: st.Name,
			Restarts:  st.RestartCount,
			Message:   truncate(w.Message, maxMessageLen),
			Reason:    model.ReasonCrashLoop,
		})
	}
	return dets
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func nsLabel(ns string) string {
	if ns == metav1.NamespaceAll {
		return "ALL"
	}
	return ns
}
