// firestore_client.go
package main

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// FirestoreとAuthのクライアントをプロジェクト全体で共有する
var firestoreClient *firestore.Client
var authClient *auth.Client

// initFirebase はFirebase Admin SDKを初期化し、共有クライアントを設定します。
func initFirebase(ctx context.Context, cfg *Config) error {
	logger.Info("Initializing Firestore client...")

	if cfg.CredentialsJSON == "" {
		return errors.New("環境変数 GOOGLE_APPLICATION_CREDENTIALS_JSON が設定されていません")
	}

	authOption := option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))
	app, err := firebase.NewApp(ctx, nil, authOption)
	if err != nil {
		return fmt.Errorf("Firebase Admin SDKの初期化に失敗しました: %w", err)
	}

	firestoreClient, err = app.Firestore(ctx)
	if err != nil {
		return fmt.Errorf("Firestoreクライアントの取得に失敗しました: %w", err)
	}

	authClient, err = app.Auth(ctx)
	if err != nil {
		return fmt.Errorf("Authクライアントの取得に失敗しました: %w", err)
	}

	logger.Info("Firestore and Auth clients initialized successfully.")
	return nil
}

// closeFirebase は共有クライアントを閉じます。
func closeFirebase() {
	if firestoreClient != nil {
		if err := firestoreClient.Close(); err != nil {
			logger.Warnw("failed to close firestore client", "error", err)
		}
	}
}

// firestoreStore は Store のFirestore実装です。
type firestoreStore struct {
	client *firestore.Client
}

func newFirestoreStore(client *firestore.Client) *firestoreStore {
	return &firestoreStore{client: client}
}

func (s *firestoreStore) col(base string) *firestore.CollectionRef {
	return s.client.Collection(collectionName(base))
}

// countQuery はサーバー側の集計クエリで件数を数えます。
func countQuery(ctx context.Context, q firestore.Query) (int64, error) {
	res, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := res["all"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("unexpected aggregation result type %T", res["all"])
	}
	return v.GetIntegerValue(), nil
}

// watchQuery はクエリのスナップショットを購読し、decode の結果を emit に流します。
// 購読が止められるかコンテキストが終わるまで戻りません。
func watchQuery[T any](ctx context.Context, q firestore.Query, decode func(*firestore.QuerySnapshot) (T, error), emit func(T, error) bool) {
	it := q.Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if ctx.Err() != nil || errors.Is(err, iterator.Done) {
			return
		}
		var zero T
		if err != nil {
			// リスナーのエラーは1回通知して終了する
			emit(zero, err)
			return
		}
		v, err := decode(snap)
		if !emit(v, err) {
			return
		}
	}
}

var _ Store = (*firestoreStore)(nil)
