package main

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// GetUser は users/{uid} を取得します。存在しなければ ErrNotFound を返します。
func (s *firestoreStore) GetUser(ctx context.Context, uid string) (*UserRecord, error) {
	doc, err := s.col(usersCollection).Doc(uid).Get(ctx)
	if err != nil {
		if isFirestoreNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeUser(doc)
}

func (s *firestoreStore) ListUsers(ctx context.Context) ([]UserRecord, error) {
	iter := s.col(usersCollection).Documents(ctx)
	defer iter.Stop()

	users := []UserRecord{}
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		u, err := decodeUser(doc)
		if err != nil {
			logger.Warnw("skipping malformed user document", "id", doc.Ref.ID, "error", err)
			continue
		}
		users = append(users, *u)
	}
	return users, nil
}

// FindUserByEmail はメールアドレスが一致する最初のユーザーを返します。
func (s *firestoreStore) FindUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	iter := s.col(usersCollection).Where("email", "==", email).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeUser(doc)
}

func (s *firestoreStore) CreateUser(ctx context.Context, u UserRecord) error {
	_, err := s.col(usersCollection).Doc(u.UID).Set(ctx, u)
	return err
}

// UpdateUser は指定したフィールドだけをマージします。
func (s *firestoreStore) UpdateUser(ctx context.Context, uid string, fields map[string]interface{}) error {
	_, err := s.col(usersCollection).Doc(uid).Set(ctx, fields, firestore.MergeAll)
	return err
}

func (s *firestoreStore) CountUsers(ctx context.Context) (int64, error) {
	return countQuery(ctx, s.col(usersCollection).Query)
}

func decodeUser(doc *firestore.DocumentSnapshot) (*UserRecord, error) {
	var u UserRecord
	if err := doc.DataTo(&u); err != nil {
		return nil, err
	}
	if u.UID == "" {
		u.UID = doc.Ref.ID
	}
	return &u, nil
}
