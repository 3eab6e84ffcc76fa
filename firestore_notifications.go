package main

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

func (s *firestoreStore) ListNotifications(ctx context.Context, userID string) ([]Notification, error) {
	q := s.col(notificationsCollection).
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc)
	return decodeNotifications(q.Documents(ctx))
}

// ListNotificationsUnordered は複合インデックスが無い環境向けのクエリです。
func (s *firestoreStore) ListNotificationsUnordered(ctx context.Context, userID string) ([]Notification, error) {
	q := s.col(notificationsCollection).Where("userId", "==", userID)
	return decodeNotifications(q.Documents(ctx))
}

func (s *firestoreStore) GetNotification(ctx context.Context, id string) (*Notification, error) {
	doc, err := s.col(notificationsCollection).Doc(id).Get(ctx)
	if err != nil {
		if isFirestoreNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var n Notification
	if err := doc.DataTo(&n); err != nil {
		return nil, err
	}
	n.ID = doc.Ref.ID
	return &n, nil
}

// WatchUnreadCount は未読件数のライブ購読を開始します。
func (s *firestoreStore) WatchUnreadCount(ctx context.Context, userID string) *Stream[int] {
	q := s.col(notificationsCollection).
		Where("userId", "==", userID).
		Where("read", "==", false)
	return newStream(ctx, func(ctx context.Context, emit func(int, error) bool) {
		watchQuery(ctx, q, func(snap *firestore.QuerySnapshot) (int, error) {
			return snap.Size, nil
		}, emit)
	})
}

func (s *firestoreStore) CreateNotification(ctx context.Context, n Notification) (string, error) {
	ref, _, err := s.col(notificationsCollection).Add(ctx, n)
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (s *firestoreStore) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := s.col(notificationsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "read", Value: true},
	})
	if isFirestoreNotFound(err) {
		return ErrNotFound
	}
	return err
}

func (s *firestoreStore) DeleteNotification(ctx context.Context, id string) error {
	_, err := s.col(notificationsCollection).Doc(id).Delete(ctx)
	return err
}

// ListAllNotificationIDs は全ユーザー分の通知IDを返します。フィールドは読みません。
func (s *firestoreStore) ListAllNotificationIDs(ctx context.Context) ([]string, error) {
	iter := s.col(notificationsCollection).Select().Documents(ctx)
	defer iter.Stop()

	var ids []string
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, doc.Ref.ID)
	}
	return ids, nil
}

func decodeNotifications(iter *firestore.DocumentIterator) ([]Notification, error) {
	defer iter.Stop()

	list := []Notification{}
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var n Notification
		if err := doc.DataTo(&n); err != nil {
			logger.Warnw("skipping malformed notification", "id", doc.Ref.ID, "error", err)
			continue
		}
		n.ID = doc.Ref.ID
		list = append(list, n)
	}
	return list, nil
}
