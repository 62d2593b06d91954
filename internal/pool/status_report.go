package pool

import (
	"time"

	"llmpoold/pkg/types"
)

// Worker returns a snapshot of one worker.
func (p *Pool) Worker(id WorkerID) (WorkerInfo, error) {
	w, err := p.lookup(id)
	if err != nil {
		return WorkerInfo{}, err
	}
	return w.info(), nil
}

// Workers returns snapshots of all workers in registration order.
func (p *Pool) Workers() []WorkerInfo {
	p.mu.RLock()
	ws := make([]*worker, 0, len(p.order))
	for _, id := range p.order {
		ws = append(ws, p.workers[id])
	}
	p.mu.RUnlock()
	out := make([]WorkerInfo, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.info())
	}
	return out
}

func (w *worker) info() WorkerInfo {
	w.mu.Lock()
	info := WorkerInfo{
		ID:        w.id,
		Config:    w.config.Clone(),
		Created:   w.created,
		StartedAt: w.startedAt,
		LastUsed:  w.lastUsed,
		Starts:    w.starts,
		Requests:  w.requests,
		LastError: w.lastErr,
	}
	w.mu.Unlock()
	if h := w.live.Load(); h != nil {
		info.Running = true
		info.PID = h.exec.PID()
		info.QueueLen = h.exec.in.Len()
	}
	return info
}

// Status builds the /status payload.
func (p *Pool) Status() types.StatusResponse {
	infos := p.Workers()
	resp := types.StatusResponse{
		Strategy:       p.strategy.Name(),
		Workers:        make([]types.WorkerStatus, 0, len(infos)),
		Registered:     len(infos),
		MaxQueueDepth:  p.maxQueueDepth,
		UptimeSeconds:  int64(time.Since(p.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
	for _, info := range infos {
		if info.Running {
			resp.Running++
		}
		resp.Workers = append(resp.Workers, info.Status())
	}
	return resp
}

// Status converts the snapshot to its API form.
func (i WorkerInfo) Status() types.WorkerStatus {
	return types.WorkerStatus{
		ID:           string(i.ID),
		Config:       SpecOf(i.Config),
		Running:      i.Running,
		PID:          i.PID,
		CreatedUnix:  unixOrZero(i.Created),
		StartedUnix:  unixOrZero(i.StartedAt),
		LastUsedUnix: unixOrZero(i.LastUsed),
		Starts:       i.Starts,
		Requests:     i.Requests,
		QueueLen:     i.QueueLen,
		LastError:    i.LastError,
	}
}

// ConfigOf converts an API worker spec to a WorkerConfig.
func ConfigOf(s types.WorkerSpec) WorkerConfig {
	return WorkerConfig{Name: s.Name, Backend: s.Backend, Loader: s.Loader, Params: s.Params}.Clone()
}

// SpecOf converts a WorkerConfig to its API form.
func SpecOf(c WorkerConfig) types.WorkerSpec {
	c = c.Clone()
	return types.WorkerSpec{Name: c.Name, Backend: c.Backend, Loader: c.Loader, Params: c.Params}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
