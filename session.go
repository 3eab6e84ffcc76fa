package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// 開発環境用のデフォルトキー（本番では必ず SESSION_SECRET を設定）
const devSessionSecret = "your-default-secret-key-for-development-only"

// Actor は操作を行うユーザーと、その時点の管理者モードの組です。
type Actor struct {
	User      UserRecord
	AdminMode bool
}

// Session はサインインからサインアウトまでのユーザーの状態です。
// サインイン時に作られ、サインアウトで破棄されます。
type Session struct {
	ID        string
	ExpiresAt time.Time

	mu        sync.Mutex
	user      UserRecord
	adminMode bool
	closed    bool
	closers   []func()
	gesture   *GestureTracker
	unread    *UnreadCounter
}

func newSession(id string, user UserRecord, adminMode bool, expiresAt time.Time) *Session {
	return &Session{
		ID:        id,
		ExpiresAt: expiresAt,
		user:      user,
		adminMode: adminMode && user.IsAdmin,
	}
}

// User はセッションのユーザー情報のコピーを返します。
func (s *Session) User() UserRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Actor は現在のユーザーと管理者モードを返します。
func (s *Session) Actor() Actor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Actor{User: s.user, AdminMode: s.adminMode}
}

// updateUser はプロフィール変更をセッションに反映します。
func (s *Session) updateUser(fn func(u *UserRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.user)
	if !s.user.IsAdmin {
		s.adminMode = false
	}
}

// ToggleAdminMode は管理者モードを切り替えます。管理者以外は ErrNotAdmin です。
func (s *Session) ToggleAdminMode() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrSessionClosed
	}
	if !s.user.IsAdmin {
		return false, ErrNotAdmin
	}
	s.adminMode = !s.adminMode
	return s.adminMode, nil
}

// Gesture はセッションに紐づくジェスチャートラッカーを返します。無ければ作ります。
func (s *Session) Gesture(create func() *GestureTracker) *GestureTracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gesture == nil {
		s.gesture = create()
	}
	return s.gesture
}

// Unread はセッションに紐づく未読件数の購読を返します。無ければ作り、セッション破棄時に止めます。
func (s *Session) Unread(create func() *UnreadCounter) (*UnreadCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.unread == nil {
		s.unread = create()
		s.closers = append(s.closers, s.unread.Stop)
	}
	return s.unread, nil
}

func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.adminMode = false
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}

// sessionClaims はセッショントークンのクレームです。jti がセッションID、sub がUIDです。
type sessionClaims struct {
	Email     string `json:"email"`
	AdminMode bool   `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

// SessionManager はセッションの発行・検証・破棄を行います。
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	users  UserStore
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	revoked  map[string]time.Time
}

// NewSessionManager はセッション管理を作成します。secret が空のときは開発用の鍵を使います。
func NewSessionManager(secret string, ttl time.Duration, users UserStore) *SessionManager {
	if secret == "" {
		logger.Warn("SESSION_SECRET is not set, using the development key")
		secret = devSessionSecret
	}
	return &SessionManager{
		secret:   []byte(secret),
		ttl:      ttl,
		users:    users,
		now:      time.Now,
		sessions: map[string]*Session{},
		revoked:  map[string]time.Time{},
	}
}

// Open はユーザーの新しいセッションを作り、そのトークンを返します。
func (m *SessionManager) Open(user UserRecord) (*Session, string, error) {
	sess := newSession(uuid.NewString(), user, false, m.now().Add(m.ttl))
	token, err := m.sign(sess)
	if err != nil {
		return nil, "", err
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	logger.Infow("session opened", "session", sess.ID, "uid", user.UID)
	return sess, token, nil
}

// Reissue は管理者モードなど現在の状態を載せたトークンを発行し直します。
func (m *SessionManager) Reissue(sess *Session) (string, error) {
	return m.sign(sess)
}

// Resolve はトークンを検証してセッションを返します。
// このプロセスが知らないセッション(Lambdaのコールドスタート後など)は users ドキュメントから復元します。
func (m *SessionManager) Resolve(ctx context.Context, tokenString string) (*Session, error) {
	claims, err := m.validate(tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	m.mu.Lock()
	if _, ok := m.revoked[claims.ID]; ok {
		m.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if sess, ok := m.sessions[claims.ID]; ok {
		m.mu.Unlock()
		return sess, nil
	}
	m.mu.Unlock()

	user, err := m.users.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s no longer exists", ErrUnauthorized, claims.Subject)
		}
		return nil, fmt.Errorf("セッションの復元に失敗しました: %w", err)
	}
	sess := newSession(claims.ID, *user, claims.AdminMode, claims.ExpiresAt.Time)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[claims.ID]; ok {
		return existing, nil
	}
	m.sessions[sess.ID] = sess
	logger.Debugw("session restored", "session", sess.ID, "uid", user.UID)
	return sess, nil
}

// CurrentActor はセッションの操作者を返します。管理者のときは users ドキュメントを読み直し、
// 権限が外されていれば管理者モードも解除します。
func (m *SessionManager) CurrentActor(ctx context.Context, sess *Session) (Actor, error) {
	actor := sess.Actor()
	if !actor.User.IsAdmin {
		return actor, nil
	}
	user, err := m.users.GetUser(ctx, actor.User.UID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Actor{}, fmt.Errorf("%w: user %s no longer exists", ErrUnauthorized, actor.User.UID)
		}
		return Actor{}, fmt.Errorf("権限の確認に失敗しました: %w", err)
	}
	if !user.IsAdmin {
		logger.Infow("admin privileges revoked", "session", sess.ID, "uid", actor.User.UID)
		sess.updateUser(func(u *UserRecord) { u.IsAdmin = false })
	}
	return sess.Actor(), nil
}

// Close はセッションを破棄し、購読などの後片付けを行います。
func (m *SessionManager) Close(sess *Session) {
	m.mu.Lock()
	delete(m.sessions, sess.ID)
	m.revoked[sess.ID] = sess.ExpiresAt
	m.mu.Unlock()

	sess.close()
	logger.Infow("session closed", "session", sess.ID)
}

// Sweep は期限切れのセッションと失効記録を取り除きます。
func (m *SessionManager) Sweep() int {
	now := m.now()

	m.mu.Lock()
	var expired []*Session
	for id, sess := range m.sessions {
		if now.After(sess.ExpiresAt) {
			expired = append(expired, sess)
			delete(m.sessions, id)
		}
	}
	for id, exp := range m.revoked {
		if now.After(exp) {
			delete(m.revoked, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range expired {
		sess.close()
	}
	return len(expired)
}

// Shutdown は全てのセッションを破棄します。
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		all = append(all, sess)
	}
	m.sessions = map[string]*Session{}
	m.mu.Unlock()

	for _, sess := range all {
		sess.close()
	}
}

// sign はセッションのトークンを生成します
func (m *SessionManager) sign(sess *Session) (string, error) {
	actor := sess.Actor()
	claims := sessionClaims{
		Email:     actor.User.Email,
		AdminMode: actor.AdminMode,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   actor.User.UID,
			IssuedAt:  jwt.NewNumericDate(m.now()),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// validate はセッショントークンを検証してクレームを返します
func (m *SessionManager) validate(tokenString string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// 署名メソッドの確認
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, errors.New("session id or uid not found in token")
	}
	if claims.ExpiresAt == nil {
		return nil, errors.New("expiration not found in token")
	}
	return claims, nil
}
