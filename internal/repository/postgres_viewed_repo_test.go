package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// PostgresViewedRepoはViewedRepositoryインターフェースを満たすことを検証
func TestPostgresViewedRepo_ImplementsInterface(t *testing.T) {
	var _ ViewedRepository = (*PostgresViewedRepo)(nil)
}

// NewPostgresViewedRepoが正しく初期化されることを検証
func TestNewPostgresViewedRepo_Initializes(t *testing.T) {
	repo := NewPostgresViewedRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// 閲覧履歴が最新5件に制限されることを検証
func TestPostgresViewedRepo_RecordView_TrimsToWindow(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresViewedRepo(db)
	ctx := context.Background()

	userID := insertTestUser(t, db, "window@example.com")

	productIDs := make([]string, 7)
	for i := range productIDs {
		productIDs[i] = insertTestProduct(t, db, fmt.Sprintf("Guitar %d", i), 100.0, 1)
	}

	for _, pid := range productIDs {
		if err := repo.RecordView(ctx, userID, pid, 5); err != nil {
			t.Fatalf("RecordViewに失敗: %v", err)
		}
		// viewed_atのタイムスタンプ解像度より確実に離す
		time.Sleep(2 * time.Millisecond)
	}

	entries, err := repo.ListByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("ListByUserに失敗: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("エントリ数 = %d, want 5", len(entries))
	}

	// 最新5件（productIDs[2..6]）が新しい順で残っていること
	for i, e := range entries {
		want := productIDs[len(productIDs)-1-i]
		if e.ProductID != want {
			t.Errorf("entries[%d].ProductID = %q, want %q", i, e.ProductID, want)
		}
	}
}

// 再閲覧がエントリを複製せず、最新位置に移動することを検証
func TestPostgresViewedRepo_RecordView_RefreshMovesToFront(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresViewedRepo(db)
	ctx := context.Background()

	userID := insertTestUser(t, db, "refresh@example.com")
	first := insertTestProduct(t, db, "First", 100.0, 1)
	second := insertTestProduct(t, db, "Second", 100.0, 1)

	if err := repo.RecordView(ctx, userID, first, 5); err != nil {
		t.Fatalf("RecordViewに失敗: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := repo.RecordView(ctx, userID, second, 5); err != nil {
		t.Fatalf("RecordViewに失敗: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	// firstを再閲覧すると先頭に戻る
	if err := repo.RecordView(ctx, userID, first, 5); err != nil {
		t.Fatalf("RecordViewに失敗: %v", err)
	}

	entries, err := repo.ListByUser(ctx, userID, 5)
	if err != nil {
		t.Fatalf("ListByUserに失敗: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("エントリ数 = %d, want 2（複製されている）", len(entries))
	}
	if entries[0].ProductID != first {
		t.Errorf("先頭 = %q, want %q", entries[0].ProductID, first)
	}
	if entries[1].ProductID != second {
		t.Errorf("2番目 = %q, want %q", entries[1].ProductID, second)
	}
}

// 返却順が閲覧時刻の厳密な降順であることを検証
func TestPostgresViewedRepo_ListByUser_DescendingOrder(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresViewedRepo(db)
	ctx := context.Background()

	userID := insertTestUser(t, db, "order@example.com")
	for i := 0; i < 5; i++ {
		pid := insertTestProduct(t, db, fmt.Sprintf("Order %d", i), 100.0, 1)
		if err := repo.RecordView(ctx, userID, pid, 5); err != nil {
			t.Fatalf("RecordViewに失敗: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	entries, err := repo.ListByUser(ctx, userID, 5)
	if err != nil {
		t.Fatalf("ListByUserに失敗: %v", err)
	}
	for i := 1; i < len(entries); i++ {
		if !entries[i].ViewedAt.Before(entries[i-1].ViewedAt) {
			t.Errorf("entries[%d]が降順でない: %v >= %v", i, entries[i].ViewedAt, entries[i-1].ViewedAt)
		}
	}
}

// 同一ユーザーへの並行閲覧後もエントリ数が上限以下であることを検証
func TestPostgresViewedRepo_RecordView_ConcurrentWritesRespectCap(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresViewedRepo(db)
	ctx := context.Background()

	userID := insertTestUser(t, db, "concurrent-view@example.com")
	productIDs := make([]string, 10)
	for i := range productIDs {
		productIDs[i] = insertTestProduct(t, db, fmt.Sprintf("Concurrent %d", i), 100.0, 1)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(productIDs))
	for i, pid := range productIDs {
		wg.Add(1)
		go func(i int, pid string) {
			defer wg.Done()
			errs[i] = repo.RecordView(ctx, userID, pid, 5)
		}(i, pid)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("RecordView[%d]に失敗: %v", i, err)
		}
	}

	var count int
	if err := db.QueryRow(
		`SELECT count(*) FROM viewed_products WHERE user_id = $1`, userID,
	).Scan(&count); err != nil {
		t.Fatalf("カウント取得に失敗: %v", err)
	}
	if count > 5 {
		t.Errorf("並行書き込み後のエントリ数 = %d, want <= 5", count)
	}
}
