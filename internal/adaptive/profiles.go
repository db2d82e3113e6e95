package adaptive

import (
	"time"

	"github.com/vtrpza/crawled/pkg/types"
)

// profile is the intent-specific base layer of a fetch configuration. It sits
// at the bottom of the merge precedence, below the stealth policy and the
// caller overrides.
type profile struct {
	ExtractionMode     string
	WordCountThreshold int
	DwellDelay         time.Duration
	RemoveOverlays     bool
	ScanFullPage       bool
	InteractionScript  string
}

// profiles keys intent-specific tuning as data rather than branching per
// category. Intents absent from the table use baseProfile unchanged.
var profiles = map[types.Intent]profile{
	types.IntentArticle: {
		ExtractionMode:     "markdown",
		WordCountThreshold: 50,
		RemoveOverlays:     true,
		ScanFullPage:       true,
	},
	types.IntentData: {
		ExtractionMode:     "markdown",
		WordCountThreshold: 10, // keep small data elements
		DwellDelay:         3 * time.Second,
		InteractionScript:  dataInteractionScript,
	},
	types.IntentSocial: {
		ExtractionMode:     "markdown",
		WordCountThreshold: 50,
		DwellDelay:         4 * time.Second,
		InteractionScript:  socialInteractionScript,
	},
	types.IntentEcommerce: {
		ExtractionMode:     "markdown",
		WordCountThreshold: 50,
		DwellDelay:         2500 * time.Millisecond,
		RemoveOverlays:     true,
		InteractionScript:  ecommerceInteractionScript,
	},
	types.IntentDocs: {
		ExtractionMode:     "markdown",
		WordCountThreshold: 20,
		ScanFullPage:       true,
	},
	types.IntentMedia: {
		ExtractionMode:     "markdown",
		WordCountThreshold: 50,
		DwellDelay:         3 * time.Second,
		InteractionScript:  mediaInteractionScript,
	},
}

var baseProfile = profile{
	ExtractionMode:     "markdown",
	WordCountThreshold: 50,
}

// profileFor looks the intent up in the table, falling back to the base
// profile for intents with no specific tuning (form, search, generic).
func profileFor(intent types.Intent) profile {
	if p, ok := profiles[intent]; ok {
		return p
	}
	return baseProfile
}

// dataInteractionScript expands collapsed sections and scrolls tables into
// view so lazy-loaded data renders before capture.
const dataInteractionScript = `
(async () => {
	document.querySelectorAll('[aria-expanded="false"], .expand, .show-more').forEach(btn => btn.click());
	document.querySelectorAll('[data-src], .lazy-load').forEach(el => {
		if (el.dataset.src) { el.src = el.dataset.src; }
	});
	const tables = document.querySelectorAll('table, .data-table, .grid');
	for (const table of tables) {
		table.scrollIntoView({ behavior: 'smooth' });
		await new Promise(r => setTimeout(r, 500));
	}
	await new Promise(r => setTimeout(r, 2000));
})();
`

// socialInteractionScript drives scroll-based pagination on feed layouts
// until no new content loads.
const socialInteractionScript = `
(async () => {
	const container = document.querySelector('[data-testid="primaryColumn"], main, .feed') || document.body;
	let lastHeight = container.scrollHeight;
	for (let i = 0; i < 8; i++) {
		container.scrollTop = container.scrollHeight;
		await new Promise(r => setTimeout(r, 1500));
		if (container.scrollHeight === lastHeight) { break; }
		lastHeight = container.scrollHeight;
		document.querySelectorAll('[data-testid="showMore"], .show-more, .load-more').forEach(btn => {
			if (btn.offsetHeight > 0) { btn.click(); }
		});
		await new Promise(r => setTimeout(r, 1000));
	}
})();
`

// ecommerceInteractionScript dismisses purchase-blocking overlays and expands
// product detail sections.
const ecommerceInteractionScript = `
(async () => {
	document.querySelectorAll('.popup, .modal, .overlay, .newsletter-popup, .cookie-banner').forEach(overlay => {
		const close = overlay.querySelector('.close, .dismiss, [aria-label="close"]');
		if (close) { close.click(); } else { overlay.style.display = 'none'; }
	});
	document.querySelectorAll('.read-more, .show-details, .expand-description').forEach(btn => btn.click());
	document.querySelectorAll('img[data-src], img.lazy').forEach(img => {
		if (img.dataset.src) { img.src = img.dataset.src; }
	});
	await new Promise(r => setTimeout(r, 2000));
})();
`

// mediaInteractionScript forces lazy media to load and expands galleries.
const mediaInteractionScript = `
(async () => {
	document.querySelectorAll('img[data-src]').forEach(img => { img.src = img.dataset.src; });
	document.querySelectorAll('.gallery-expand, .view-all, .show-gallery').forEach(btn => btn.click());
	await new Promise(r => setTimeout(r, 1500));
})();
`
