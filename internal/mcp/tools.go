package mcp

import "github.com/mark3labs/mcp-go/mcp"

var stringItems = mcp.Items(map[string]any{"type": "string"})

var generateToolDef = mcp.NewTool("listing_generate",
	mcp.WithDescription("Generate the long-form (Facebook) and short-form (Marketplace, 800 characters max) listing text for one used vehicle."),
	mcp.WithObject("vehicle",
		mcp.Required(),
		mcp.Description("Vehicle record: title, brand, price, km, stock, vin, url, year, transmission, drivetrain, fuel, body, comfort, features, specs"),
	),
	mcp.WithArray("sticker_lines",
		mcp.Description("Window-sticker equipment lines (✅ header / ▫️ detail). When non-empty they replace the dealer equipment lists."),
		stringItems,
	),
	mcp.WithString("slug",
		mcp.Description("Listing slug; its trailing segment is used as the stock number when the record has none"),
	),
	mcp.WithBoolean("ai",
		mcp.Description("Generate the text with the configured language model, falling back to templates"),
	),
	mcp.WithBoolean("strict",
		mcp.Description("Fail on a record without a usable title instead of emitting the unavailable placeholder (default from config)"),
	),
)

var classifyToolDef = mcp.NewTool("listing_classify",
	mcp.WithDescription("Classify a vehicle (exotic, luxury, truck, suv, sport, daily) and return the presentation profile and VIN disclosure policy."),
	mcp.WithObject("vehicle",
		mcp.Required(),
		mcp.Description("Vehicle record"),
	),
)

var stickerParseToolDef = mcp.NewTool("sticker_parse",
	mcp.WithDescription("Group window-sticker lines into option records and render them as price-free display lines."),
	mcp.WithArray("lines",
		mcp.Required(),
		mcp.Description("Lines extracted from a window sticker"),
		stringItems,
	),
)

var stickerFetchToolDef = mcp.NewTool("sticker_fetch",
	mcp.WithDescription("Fetch the manufacturer window sticker PDF for a VIN through the local cache. Returns metadata only."),
	mcp.WithString("vin",
		mcp.Required(),
		mcp.Description("17-character VIN"),
	),
	mcp.WithBoolean("refresh",
		mcp.Description("Bypass the cache"),
	),
)

var stickerListToolDef = mcp.NewTool("sticker_list",
	mcp.WithDescription("List cached window stickers, most recent first."),
)

var stickerPurgeToolDef = mcp.NewTool("sticker_purge",
	mcp.WithDescription("Remove cached window stickers."),
	mcp.WithString("vin",
		mcp.Description("Only remove this VIN"),
	),
	mcp.WithNumber("older_than_days",
		mcp.Description("Only remove stickers fetched more than N days ago"),
	),
)
