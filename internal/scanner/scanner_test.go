package scanner

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/viniciushammett/k8s-crashloop-monitor/internal/logger"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/model"
)

func crashPod(ns, name, container string, restarts int32, msg string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Namespace: ns, Name: name},
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{{
				Name:         container,
				RestartCount: restarts,
				State: corev1.ContainerState{
					Waiting: &corev1.ContainerStateWaiting{
						Reason:  model.ReasonCrashLoop,
						Message: msg,
					},
				},
			}},
		},
	}
}

func runningPod(ns, name string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Namespace: ns, Name: name},
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{{
				Name:  "app",
				State: corev1.ContainerState{Running: &corev1.ContainerStateRunning{}},
			}},
		},
	}
}

func TestScanAllNamespaces(t *testing.T) {
	cs := fake.NewSimpleClientset(
		crashPod("ns1", "p1", "c1", 5, "back-off 40s restarting failed container"),
		runningPod("ns1", "healthy"),
		crashPod("ns2", "p2", "c2", 1, ""),
	)
	s := New(logger.Nop(), cs, nil)

	dets, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, dets, 2)
	for _, d := range dets {
		assert.Equal(t, model.ReasonCrashLoop, d.Reason)
		assert.False(t, d.Time.IsZero())
		assert.Equal(t, time.UTC, d.Time.Location())
	}
}

func TestScanNamespaceFilterOrder(t *testing.T) {
	cs := fake.NewSimpleClientset(
		crashPod("ns-b", "pb", "c", 1, ""),
		crashPod("ns-a", "pa", "c", 1, ""),
		crashPod("ns-skip", "px", "c", 1, ""),
	)
	s := New(logger.Nop(), cs, []string{"ns-a", "ns-b"})

	dets, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, dets, 2)
	// per-namespace results follow filter order
	assert.Equal(t, "ns-a", dets[0].Namespace)
	assert.Equal(t, "ns-b", dets[1].Namespace)
}

func TestScanIncludesInitContainers(t *testing.T) {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Namespace: "ns1", Name: "p1"},
		Status: corev1.PodStatus{
			InitContainerStatuses: []corev1.ContainerStatus{{
				Name: "init-db",
				State: corev1.ContainerState{
					Waiting: &corev1.ContainerStateWaiting{Reason: model.ReasonCrashLoop},
				},
			}},
		},
	}
	s := New(logger.Nop(), fake.NewSimpleClientset(pod), nil)

	dets, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, "init-db", dets[0].Container)
	assert.Equal(t, int32(0), dets[0].Restarts)
}

func TestScanIgnoresOtherWaitingReasons(t *testing.T) {
	pod := crashPod("ns1", "p1", "c1", 2, "")
	pod.Status.ContainerStatuses[0].State.Waiting.Reason = "ImagePullBackOff"
	s := New(logger.Nop(), fake.NewSimpleClientset(pod), nil)

	dets, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dets)
}

func TestScanTruncatesMessage(t *testing.T) {
	long := strings.Repeat("x", 1200)
	s := New(logger.Nop(), fake.NewSimpleClientset(crashPod("ns1", "p1", "c1", 3, long)), nil)

	dets, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Len(t, dets[0].Message, maxMessageLen)
}

func TestScanAPIErrorAbortsTick(t *testing.T) {
	cs := fake.NewSimpleClientset(crashPod("ns-a", "pa", "c", 1, ""))
	cs.PrependReactor("list", "pods", func(action k8stesting.Action) (bool, runtime.Object, error) {
		if action.GetNamespace() == "ns-b" {
			return true, nil, assert.AnError
		}
		return false, nil, nil
	})
	s := New(logger.Nop(), cs, []string{"ns-a", "ns-b"})

	dets, err := s.Scan(context.Background())
	require.Error(t, err)
	// whole tick is abandoned, no partial results escape
	assert.Nil(t, dets)
}
