package config

// Default third-party service tables. Every entry here is best-effort:
// hosts disappear and response shapes drift, so operators can replace all
// of these via the YAML endpoints section without a rebuild.

var defaultCobaltInstances = []string{
	"https://api.cobalt.tools/api/download",
	"https://cobalt.api.learner.alexi.sh/api/download",
	"https://api.cobalt.lol/api/download",
}

var defaultInvidiousInstances = []string{
	"https://iv.datura.network/api/v1/videos/",
	"https://vid.puffyan.us/api/v1/videos/",
	"https://iv.nboeck.de/api/v1/videos/",
	"https://iv.melmac.space/api/v1/videos/",
	"https://pipedapi.kavin.rocks/streams/",
	"https://api.piped.projectkreators.com/streams/",
}

var defaultTikTokAPIs = []string{
	"https://snaptik.app/abc?url=",
	"https://tiktokdownload.online/?url=",
	"https://ttdownloader.io/download?url=",
	"https://tiktokonly.net/download?url=",
	"https://lovetik.com/download?url=",
	"https://ttdown.org/download?url=",
	"https://tiktokdownload.app/download?url=",
	"https://tikmate.cc/download?url=",
	"https://snaptik.cc/download?url=",
	"https://tiktokmate.net/download?url=",
	"https://tiktokdownload.cc/download?url=",
	"https://snap-tik.com/download?url=",
	"https://tiktokdownload.net/download?url=",
	"https://tikmate.info/download?url=",
}

var defaultInstagramAPIs = []string{
	"https://insta-mood.com/download?url=",
	"https://downloadgram.org/download?url=",
	"https://instasave.org/download?url=",
	"https://imginn.com/download?url=",
	"https://instadp.com/download?url=",
	"https://instagramdownloader.com/download?url=",
	"https://instamod.net/download?url=",
	"https://instagram-video-downloader.com/download?url=",
	"https://insta-save.net/download?url=",
	"https://download-instagram-videos.com/download?url=",
}

var defaultPinterestAPIs = []string{
	"https://pinterestdownloader.com/download?url=",
	"https://pinloader.com/download?url=",
	"https://pinterestvideo.download/download?url=",
	"https://pinterestsave.net/download?url=",
	"https://pinterestdown.org/download?url=",
	"https://pinterest-media-downloader.com/download?url=",
}

var defaultFacebookAPIs = []string{
	"https://fbdown.net/download?url=",
	"https://getfb.net/download?url=",
	"https://fdown.net/download?url=",
	"https://fbvideo-downloader.com/download?url=",
	"https://facebook-video-downloader.com/download?url=",
	"https://fbdownloader.com/download?url=",
	"https://savefacebook.net/download?url=",
}

var defaultUniversalAPIs = []string{
	"https://savefrom.net/download?url=",
	"https://ru.savefrom.net/download?url=",
	"https://en.savefrom.net/download?url=",
	"https://www.savefrom.net/download?url=",
}
