package pkg

import (
	cryptoRand "crypto/rand"
	"math/big"
	"strings"
)

// 去掉易混字符的邀请码字母表
const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RandInviteCode 生成 n 位 pod 邀请码
func RandInviteCode(n int) (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(inviteAlphabet)))
	for i := 0; i < n; i++ {
		x, err := cryptoRand.Int(cryptoRand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(inviteAlphabet[x.Int64()])
	}
	return b.String(), nil
}
