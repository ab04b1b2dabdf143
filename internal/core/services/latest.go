package services

import (
	"context"
	"sync"
)

// Latest garantit "la dernière requête gagne" pour une vue :
// chaque Begin annule la requête précédente encore en vol
// et seul le dernier numéro de séquence peut publier son résultat.
type Latest struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// Begin ouvre une nouvelle génération. done doit toujours être appelé.
func (l *Latest) Begin(ctx context.Context) (context.Context, uint64, func()) {
	child, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	seq := l.seq
	l.cancel = cancel
	l.mu.Unlock()

	done := func() {
		l.mu.Lock()
		if l.seq == seq {
			l.cancel = nil
		}
		l.mu.Unlock()
		cancel()
	}
	return child, seq, done
}

func (l *Latest) IsCurrent(seq uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq == seq
}

// Commit exécute apply seulement si seq est toujours la dernière génération.
func (l *Latest) Commit(seq uint64, apply func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seq != seq {
		return false
	}
	apply()
	return true
}

func (l *Latest) Seq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}
