// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package keychain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"code.hybscloud.com/relaynet/keychain"
)

func TestInsertAndHasKey(t *testing.T) {
	kc := keychain.New[string]()
	kc.Insert("conn-1", []byte("s3cret"), "client-a")

	assert.True(t, kc.HasID("conn-1"))
	assert.True(t, kc.HasKey("conn-1", []byte("s3cret")))
	assert.False(t, kc.HasKey("conn-1", []byte("wrong")))
	assert.False(t, kc.HasKey("missing", []byte("s3cret")))

	data, ok := kc.Get("conn-1")
	assert.True(t, ok)
	assert.Equal(t, "client-a", data)
}

func TestRemove(t *testing.T) {
	kc := keychain.New[string]()
	kc.Insert("conn-1", []byte("s3cret"), "client-a")
	kc.Remove("conn-1")
	assert.False(t, kc.HasID("conn-1"))
}

func TestRemoveIfHasKey(t *testing.T) {
	kc := keychain.New[int]()
	kc.Insert("conn-1", []byte("s3cret"), 7)

	_, result := kc.RemoveIfHasKey("missing", []byte("s3cret"))
	assert.Equal(t, keychain.InvalidID, result)

	data, result := kc.RemoveIfHasKey("conn-1", []byte("wrong"))
	assert.Equal(t, keychain.InvalidKey, result)
	assert.True(t, kc.HasID("conn-1"))
	_ = data

	data, result = kc.RemoveIfHasKey("conn-1", []byte("s3cret"))
	assert.Equal(t, keychain.Removed, result)
	assert.Equal(t, 7, data)
	assert.False(t, kc.HasID("conn-1"))
}

func TestDifferentLengthKeysNeverMatch(t *testing.T) {
	kc := keychain.New[struct{}]()
	kc.Insert("conn-1", []byte("short"), struct{}{})
	assert.False(t, kc.HasKey("conn-1", []byte("a-much-longer-key")))
}
