package utils

import (
	"math/rand/v2"
	"slices"
)

var avatarEmojis = []string{
	"😤", "😠", "😡", "🤬", "😒", "🙄", "😑", "😩",
	"🐸", "🐼", "🦊", "🐨", "🦉", "🐯", "🐱", "🐶",
	"😀", "😊", "😎", "🤓", "🧐", "🤔", "😴", "🥱",
	"👨‍💻", "👩‍💻", "🧙", "🧑‍🚀", "⭐", "🔥", "💡", "🚀",
}

// GetRandomEmoji 返回一个随机 emoji 用于默认头像
func GetRandomEmoji() string {
	return avatarEmojis[rand.IntN(len(avatarEmojis))]
}

// GetCommonEmojis 返回可选头像列表
func GetCommonEmojis() []string {
	return slices.Clone(avatarEmojis)
}

// IsValidAvatar 头像只能从列表中选
func IsValidAvatar(emoji string) bool {
	return slices.Contains(avatarEmojis, emoji)
}
