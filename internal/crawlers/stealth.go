package crawlers

import (
	"encoding/json"
	"strings"

	"github.com/RecoveryAshes/PriceWatch/internal/models"
)

// identityScript 在 go-rod/stealth 基础上补充的身份脚本
// 占位符在 buildIdentityScript 中替换
const identityScript = `(() => {
	const define = (obj, key, value) => {
		try {
			Object.defineProperty(obj, key, { get: () => value, configurable: true });
		} catch (e) {}
	};

	// webdriver 必须是 undefined 而不是 false
	define(navigator, 'webdriver', undefined);
	try { delete Object.getPrototypeOf(navigator).webdriver; } catch (e) {}

	define(navigator, 'languages', Object.freeze(__LANGUAGES__));
	define(navigator, 'language', __LANGUAGE__);
	define(navigator, 'platform', __PLATFORM__);

	if (!navigator.plugins || navigator.plugins.length === 0) {
		const plugins = [
			{ name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer', description: 'Portable Document Format' },
			{ name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai', description: '' },
			{ name: 'Native Client', filename: 'internal-nacl-plugin', description: '' },
		];
		plugins.item = (i) => plugins[i] || null;
		plugins.namedItem = (n) => plugins.find((p) => p.name === n) || null;
		plugins.refresh = () => {};
		define(navigator, 'plugins', plugins);
	}

	if (!window.chrome) {
		window.chrome = {};
	}
	if (!window.chrome.runtime) {
		window.chrome.runtime = {};
	}

	// 通知权限查询与 Notification.permission 保持一致
	if (navigator.permissions && navigator.permissions.query) {
		const originalQuery = navigator.permissions.query.bind(navigator.permissions);
		navigator.permissions.query = (parameters) => {
			if (parameters && parameters.name === 'notifications') {
				const state = typeof Notification !== 'undefined' ? Notification.permission : 'default';
				return Promise.resolve({ state: state === 'default' ? 'prompt' : state, onchange: null });
			}
			return originalQuery(parameters);
		};
	}
})();`

// buildIdentityScript 按身份配置生成注入脚本
func buildIdentityScript(profile models.Profile) string {
	langs := profile.Languages()
	primary := profile.Locale
	if len(langs) > 0 {
		primary = langs[0]
	}

	platform := profile.Platform
	if platform == "" {
		platform = "Win32"
	}

	return strings.NewReplacer(
		"__LANGUAGES__", jsLiteral(langs),
		"__LANGUAGE__", jsLiteral(primary),
		"__PLATFORM__", jsLiteral(platform),
	).Replace(identityScript)
}

// jsLiteral JSON 编码即合法的 JS 字面量
func jsLiteral(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}
