// Package frogbot implements a Discord bot that lets members of a community
// build a character profile card, one section at a time, and post it to
// the community's designated profile channels.
//
// A profile is split into sections, each edited through an interactive
// view of embeds, buttons, select menus and modals:
//
//   - Details: name, URL, color, jobs and rates.
//   - Personality: likes, dislikes, personality and about me.
//   - At a Glance: gender, pronouns, race, clan, orientation, height, age
//     and friend ID.
//   - Images: thumbnail, main image and up to ten additional images.
//
// The bot supports these commands:
//
//   - /profiles: opens a section view, previews the card or posts it.
//   - /config: manages the channels a community posts profiles to.
//
// Key components of the package include:
//
//   - FrogBot: ties the Discord session, storage and servers together.
//   - Registry: caches communities and their members' profiles.
//   - Store: persists profiles and community settings with gorm.
//   - API: an admin API for setup, inspection and runtime configuration.
//   - DiscordWebhookServer: receives interactions over HTTP instead of
//     the gateway.
//   - Notifier: tells other running instances when settings change.
package frogbot
