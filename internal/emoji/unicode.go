package emoji

// Builtin is the Unicode emoji inventory tracked by default. It is not
// exhaustive; deployments can extend it through configuration. Multi-codepoint
// sequences (keycaps, variation selectors) are kept as single entries because
// identity is the full glyph sequence.
var Builtin = []Unicode{
	"😀", "😁", "😂", "🤣", "😃", "😄", "😅", "😆", "😉", "😊",
	"😋", "😎", "😍", "😘", "😗", "😙", "😚", "🙂", "🤗", "🤔",
	"😐", "😑", "😶", "🙄", "😏", "😣", "😥", "😮", "🤐", "😯",
	"😪", "😫", "😴", "😌", "😛", "😜", "😝", "🤤", "😒", "😓",
	"😔", "😕", "🙃", "🤑", "😲", "🙁", "😖", "😞", "😟", "😤",
	"😢", "😭", "😦", "😧", "😨", "😩", "😬", "😰", "😱", "😳",
	"😵", "😡", "😠", "😷", "🤒", "🤕", "🤢", "🤧", "😇", "🤠",
	"🤡", "🤥", "🤓", "😈", "👿", "👹", "👺", "💀", "👻", "👽",
	"🤖", "💩", "😺", "😸", "😹", "😻", "😼", "😽", "🙀", "😿",
	"😾", "🙈", "🙉", "🙊", "👶", "👦", "👧", "👨", "👩", "👴",
	"👵", "💪", "👈", "👉", "👆", "👇", "✌️", "🤞", "🤘", "👌",
	"👍", "👎", "✊", "👊", "🤛", "🤜", "🤚", "👋", "👏", "🙌",
	"🙏", "🤝", "💅", "👂", "👃", "👀", "👅", "👄", "💋", "❤️",
	"💔", "💕", "💖", "💗", "💙", "💚", "💛", "💜", "🖤", "💝",
	"💞", "💟", "💤", "💢", "💣", "💥", "💦", "💨", "💫", "💬",
	"💭", "🔥", "✨", "🌟", "⭐", "🌈", "☀️", "⛅", "☁️", "⚡",
	"❄️", "☃️", "⛄", "🌊", "🎉", "🎊", "🎈", "🎂", "🎁", "🏆",
	"🥇", "🥈", "🥉", "⚽", "🏀", "🏈", "⚾", "🎾", "🎮", "🎲",
	"🎵", "🎶", "🎤", "🎧", "🍕", "🍔", "🍟", "🌭", "🍿", "🍩",
	"🍪", "🍺", "🍻", "🥂", "🍷", "☕", "🍵", "🚀", "✈️", "🚗",
	"💻", "📈", "📉", "📌", "✅", "❌", "❗", "❓", "💯", "🔔",
}
