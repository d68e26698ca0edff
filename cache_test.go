// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm_test

import (
	"context"
	"testing"

	"code.hybscloud.com/doeffvm"
	"code.hybscloud.com/doeffvm/kontcache"
)

func TestCacheGetMissReturnsFoundFalse(t *testing.T) {
	h := doeffvm.NewCacheHandler(kontcache.NewMemory(), context.Background())
	got := doeffvm.Handle(doeffvm.CacheGetValue("nope"), h)
	if got.Found {
		t.Fatalf("got Found=true for an absent key, want false")
	}
}

func TestCachePutThenGetRoundTrips(t *testing.T) {
	h := doeffvm.NewCacheHandler(kontcache.NewMemory(), context.Background())
	prog := doeffvm.Bind(doeffvm.CachePutValue("k", 7), func(struct{}) doeffvm.Program[doeffvm.CacheResult] {
		return doeffvm.CacheGetValue("k")
	})
	got := doeffvm.Handle(prog, h)
	if !got.Found || got.Value != 7 {
		t.Fatalf("got %+v, want Found=true Value=7", got)
	}
}

func TestCacheExistsAndDelete(t *testing.T) {
	h := doeffvm.NewCacheHandler(kontcache.NewMemory(), context.Background())
	prog := doeffvm.Bind(doeffvm.CachePutValue("k", 1), func(struct{}) doeffvm.Program[bool] {
		return doeffvm.Bind(doeffvm.CacheHasKey("k"), func(existedBefore bool) doeffvm.Program[bool] {
			return doeffvm.Bind(doeffvm.CacheDeleteKey("k"), func(struct{}) doeffvm.Program[bool] {
				return doeffvm.CacheHasKey("k")
			})
		})
	})
	existedAfterDelete := doeffvm.Handle(prog, h)
	if existedAfterDelete {
		t.Fatal("expected key to be gone after CacheDeleteKey")
	}
}

func TestCacheDeleteOfAbsentKeyIsNotAnError(t *testing.T) {
	h := doeffvm.NewCacheHandler(kontcache.NewMemory(), context.Background())
	doeffvm.Handle(doeffvm.CacheDeleteKey("never-existed"), h)
}
