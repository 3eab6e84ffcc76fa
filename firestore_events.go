package main

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

func (s *firestoreStore) eventsQuery() firestore.Query {
	return s.col(eventsCollection).OrderBy("createdAt", firestore.Desc)
}

// ListEvents は全イベントを createdAt の降順で1回だけ取得します。
func (s *firestoreStore) ListEvents(ctx context.Context) ([]CalendarEvent, error) {
	return decodeEvents(s.eventsQuery().Documents(ctx))
}

// WatchEvents はイベント一覧のライブ購読を開始します。
func (s *firestoreStore) WatchEvents(ctx context.Context) *Stream[[]CalendarEvent] {
	q := s.eventsQuery()
	return newStream(ctx, func(ctx context.Context, emit func([]CalendarEvent, error) bool) {
		watchQuery(ctx, q, func(snap *firestore.QuerySnapshot) ([]CalendarEvent, error) {
			return decodeEvents(snap.Documents)
		}, emit)
	})
}

func (s *firestoreStore) CreateEvent(ctx context.Context, ev CalendarEvent) (string, error) {
	ref, _, err := s.col(eventsCollection).Add(ctx, ev)
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (s *firestoreStore) DeleteEvent(ctx context.Context, id string) error {
	_, err := s.col(eventsCollection).Doc(id).Delete(ctx)
	return err
}

func (s *firestoreStore) CountEvents(ctx context.Context) (int64, error) {
	return countQuery(ctx, s.col(eventsCollection).Query)
}

// decodeEvents は読み取れないドキュメントをログに残して読み飛ばします。
func decodeEvents(iter *firestore.DocumentIterator) ([]CalendarEvent, error) {
	defer iter.Stop()

	events := []CalendarEvent{}
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var ev CalendarEvent
		if err := doc.DataTo(&ev); err != nil {
			logger.Warnw("skipping malformed event document", "id", doc.Ref.ID, "error", err)
			continue
		}
		ev.ID = doc.Ref.ID
		events = append(events, ev)
	}
	return events, nil
}
