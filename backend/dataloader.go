package main

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"gitea.kood.tech/petrkubec/linkvibez/internal/model"
	"gitea.kood.tech/petrkubec/linkvibez/internal/store"
)

// DataLoaderContextKey is the key used to store dataloaders in context
type DataLoaderContextKey string

const dataLoaderKey DataLoaderContextKey = "dataloader"

const batchWait = 16 * time.Millisecond

// DataLoaders batch the per-profile lookups of one request.
type DataLoaders struct {
	ProfileLoader *dataloader.Loader[int, model.Profile]
	// LikedBackLoader answers "did this user like the viewer?".
	LikedBackLoader *dataloader.Loader[int, bool]
}

// NewDataLoaders creates loaders scoped to one viewer.
func NewDataLoaders(profiles profileStore, likes likeStore, viewerID int) *DataLoaders {
	return &DataLoaders{
		ProfileLoader: dataloader.NewBatchedLoader(profileBatchFn(profiles),
			dataloader.WithWait[int, model.Profile](batchWait)),
		LikedBackLoader: dataloader.NewBatchedLoader(likedBackBatchFn(likes, viewerID),
			dataloader.WithWait[int, bool](batchWait)),
	}
}

// GetDataLoadersFromContext retrieves dataloaders from context
func GetDataLoadersFromContext(ctx context.Context) *DataLoaders {
	if dl, ok := ctx.Value(dataLoaderKey).(*DataLoaders); ok {
		return dl
	}
	return nil
}

// WithDataLoaders adds dataloaders to context
func WithDataLoaders(ctx context.Context, dl *DataLoaders) context.Context {
	return context.WithValue(ctx, dataLoaderKey, dl)
}

func profileBatchFn(profiles profileStore) dataloader.BatchFunc[int, model.Profile] {
	return func(ctx context.Context, keys []int) []*dataloader.Result[model.Profile] {
		results := make([]*dataloader.Result[model.Profile], len(keys))

		found, err := profiles.GetMany(ctx, keys)
		for i, key := range keys {
			switch p, ok := found[key]; {
			case err != nil:
				results[i] = &dataloader.Result[model.Profile]{Error: err}
			case !ok:
				results[i] = &dataloader.Result[model.Profile]{Error: store.ErrNotFound}
			default:
				results[i] = &dataloader.Result[model.Profile]{Data: p}
			}
		}
		return results
	}
}

func likedBackBatchFn(likes likeStore, viewerID int) dataloader.BatchFunc[int, bool] {
	return func(ctx context.Context, keys []int) []*dataloader.Result[bool] {
		results := make([]*dataloader.Result[bool], len(keys))

		liked, err := likes.LikedBy(ctx, viewerID, keys)
		for i, key := range keys {
			if err != nil {
				results[i] = &dataloader.Result[bool]{Error: err}
				continue
			}
			results[i] = &dataloader.Result[bool]{Data: liked[key]}
		}
		return results
	}
}
