package recordstate

// Sync representa la confirmación remota de una mutación optimista.
// Wait bloquea hasta que el servidor responde; si falló, el estado ya fue revertido (o el rollback descartado).
type Sync struct {
	done chan struct{}
	err  error
}

func newSync() *Sync {
	return &Sync{done: make(chan struct{})}
}

// completedSync confirmación ya resuelta (mutación solo local, sin sincronizar).
func completedSync(err error) *Sync {
	s := newSync()
	s.finish(err)
	return s
}

func (s *Sync) finish(err error) {
	s.err = err
	close(s.done)
}

// Done se cierra cuando la confirmación terminó.
func (s *Sync) Done() <-chan struct{} { return s.done }

// Wait espera la confirmación y devuelve su error (RemoteSyncError si falló).
func (s *Sync) Wait() error {
	<-s.done
	return s.err
}
