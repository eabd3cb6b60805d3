// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package manager

import "code.hybscloud.com/relaynet/message"

// action is the shared command type flowing through the action task's
// queue. Only the action task ever mutates the channel registry; every
// other goroutine communicates with it exclusively through these values.
type action interface{ isAction() }

type actionRegister struct {
	channelID uint64
	sink      chan Response
}

type actionUnregister struct {
	channelID uint64
}

type actionGetRegistered struct {
	reply chan []uint64
}

type actionWrite struct {
	channelID uint64
	req       message.RawRequest
}

type actionRead struct {
	res message.RawResponse
}

func (actionRegister) isAction()      {}
func (actionUnregister) isAction()    {}
func (actionGetRegistered) isAction() {}
func (actionWrite) isAction()         {}
func (actionRead) isAction()          {}
