package main

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// PullPhase はジェスチャーの状態です。
type PullPhase int

const (
	PhaseIdle PullPhase = iota
	// PhaseArmed はページ最上部でタッチが始まり、まだデッドゾーンを越えていない状態
	PhaseArmed
	PhasePulling
	// PhaseRefreshing の間は入力をすべて無視する
	PhaseRefreshing
	// PhaseSettling はしきい値未満で指を離した後、元の位置へ戻るまでの短い待ち
	PhaseSettling
)

func (p PullPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseArmed:
		return "armed"
	case PhasePulling:
		return "pulling"
	case PhaseRefreshing:
		return "refreshing"
	case PhaseSettling:
		return "settling"
	}
	return fmt.Sprintf("PullPhase(%d)", int(p))
}

func (p PullPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// GestureState はUIに渡すジェスチャーの状態のスナップショットです。
type GestureState struct {
	Phase         PullPhase `json:"phase"`
	IsPulling     bool      `json:"isPulling"`
	IsRefreshing  bool      `json:"isRefreshing"`
	PullDistance  float64   `json:"pullDistance"`
	ShouldRefresh bool      `json:"shouldRefresh"`
	PullProgress  float64   `json:"pullProgress"`
	StartY        float64   `json:"startY"`
	CurrentY      float64   `json:"currentY"`
}

// GestureTracker は「引っ張って更新」のジェスチャーを認識するステートマシンです。
//
// ページ最上部から下方向へドラッグされたときだけ反応し、抵抗をかけた見かけの距離と
// 進捗(0〜100)を計算します。しきい値を越えて指を離すと、更新コールバックを
// ジェスチャー1回につき1度だけ呼び出します。
type GestureTracker struct {
	cfg            PullConfig
	viewportHeight float64
	onRefresh      func(ctx context.Context) error

	// after は遅延実行のフックです。テストでは差し替えます。
	after func(d time.Duration, f func())

	mu       sync.Mutex
	phase    PullPhase
	startY   float64
	currentY float64
	distance float64
	// gen はジェスチャーごとに進み、古い settle タイマーが新しいジェスチャーを壊さないようにする
	gen uint64

	inflight sync.WaitGroup
}

// NewGestureTracker はトラッカーを作成します。cfg の未設定値は既定値で埋められます。
func NewGestureTracker(cfg PullConfig, viewportHeight float64, onRefresh func(ctx context.Context) error) *GestureTracker {
	c := Config{Pull: cfg}
	c.Normalize()
	return &GestureTracker{
		cfg:            c.Pull,
		viewportHeight: viewportHeight,
		onRefresh:      onRefresh,
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// MaxPullDistance は更新が発火する見かけの距離(px)です。
func (t *GestureTracker) MaxPullDistance() float64 {
	return t.viewportHeight * t.cfg.Threshold / 100
}

// SetViewport は画面の高さを更新します。回転やリサイズに追従するためのもので、
// ドラッグ中と更新中は次のジェスチャーまで反映しません。0以下の値は無視します。
func (t *GestureTracker) SetViewport(height float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if height <= 0 || t.phase == PhaseArmed || t.phase == PhasePulling || t.phase == PhaseRefreshing {
		return false
	}
	t.viewportHeight = height
	return true
}

// TouchStart はタッチ開始を処理します。スクロール位置がちょうど0のときだけ反応します。
func (t *GestureTracker) TouchStart(y, scrollY float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if scrollY != 0 || t.phase == PhasePulling || t.phase == PhaseRefreshing {
		return
	}
	t.gen++
	t.phase = PhaseArmed
	t.startY = y
	t.currentY = y
	t.distance = 0
}

// TouchMove は指の移動を処理します。
// 戻り値が true のとき、呼び出し側はネイティブのスクロールを抑止してください。
func (t *GestureTracker) TouchMove(y, scrollY float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseArmed && t.phase != PhasePulling {
		return false
	}
	// 途中で最上部から離れたらこのドラッグは取り消し
	if scrollY != 0 {
		t.resetLocked()
		return false
	}

	t.currentY = y
	delta := y - t.startY

	if t.phase == PhaseArmed {
		if delta <= t.cfg.DeadZone {
			return false
		}
		t.phase = PhasePulling
	}

	if delta <= 0 {
		t.resetLocked()
		return false
	}

	maxPull := t.MaxPullDistance()
	t.distance = math.Min(delta/t.cfg.Resistance, maxPull*1.2)
	return t.distance > t.cfg.DeadZone
}

// TouchEnd は指を離したときの処理です。しきい値に達していれば更新を開始します。
// 更新はバックグラウンドで実行され、この関数はすぐに戻ります。
func (t *GestureTracker) TouchEnd(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.phase {
	case PhaseArmed:
		t.resetLocked()
		return
	case PhasePulling:
	default:
		return
	}

	t.gen++
	gen := t.gen

	if maxPull := t.MaxPullDistance(); maxPull > 0 && t.distance >= maxPull {
		t.phase = PhaseRefreshing
		t.inflight.Add(1)
		go t.runRefresh(context.WithoutCancel(ctx), gen)
		return
	}

	t.phase = PhaseSettling
	t.after(t.cfg.CancelSettle, func() { t.settle(gen) })
}

// TouchCancel はOSによるタッチ中断です。TouchEnd と同じ扱いです。
func (t *GestureTracker) TouchCancel(ctx context.Context) {
	t.TouchEnd(ctx)
}

// State は現在の状態のコピーを返します。
func (t *GestureTracker) State() GestureState {
	t.mu.Lock()
	defer t.mu.Unlock()

	maxPull := t.MaxPullDistance()
	progress := 0.0
	if maxPull > 0 {
		progress = math.Min(t.distance/maxPull*100, 100)
	}
	return GestureState{
		Phase:         t.phase,
		IsPulling:     t.phase == PhasePulling,
		IsRefreshing:  t.phase == PhaseRefreshing,
		PullDistance:  t.distance,
		ShouldRefresh: maxPull > 0 && t.distance >= maxPull,
		PullProgress:  progress,
		StartY:        t.startY,
		CurrentY:      t.currentY,
	}
}

// Wait は実行中の更新コールバックが戻るまで待ちます。settle の待ち時間は含みません。
func (t *GestureTracker) Wait() {
	t.inflight.Wait()
}

func (t *GestureTracker) runRefresh(ctx context.Context, gen uint64) {
	defer t.inflight.Done()

	if err := t.callRefresh(ctx); err != nil {
		logger.Errorw("pull-to-refresh callback failed", "error", err)
	}
	t.after(t.cfg.RefreshSettle, func() { t.settle(gen) })
}

// callRefresh はコールバックのパニックもエラーとして回収します。
func (t *GestureTracker) callRefresh(ctx context.Context) (err error) {
	if t.onRefresh == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh panicked: %v", r)
		}
	}()
	return t.onRefresh(ctx)
}

func (t *GestureTracker) settle(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.gen != gen {
		return
	}
	t.resetLocked()
}

func (t *GestureTracker) resetLocked() {
	t.gen++
	t.phase = PhaseIdle
	t.startY = 0
	t.currentY = 0
	t.distance = 0
}
