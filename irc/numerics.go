// Copyright (c) 2012-2014 Jeremy Latt
// released under the MIT license

package irc

// Numeric replies this client interprets. Everything else is passed through
// to the presentation layer as a status line.
const (
	RPL_WELCOME          = "001"
	RPL_ISUPPORT         = "005"
	RPL_LISTSTART        = "321"
	RPL_LIST             = "322"
	RPL_LISTEND          = "323"
	RPL_NOTOPIC          = "331"
	RPL_TOPIC            = "332"
	RPL_TOPICWHOTIME     = "333"
	RPL_NAMREPLY         = "353"
	RPL_ENDOFNAMES       = "366"
	RPL_MOTD             = "372"
	RPL_MOTDSTART        = "375"
	RPL_ENDOFMOTD        = "376"
	ERR_NOMOTD           = "422"
	ERR_ERRONEUSNICK     = "432"
	ERR_NICKNAMEINUSE    = "433"
	ERR_NICKCOLLISION    = "436"
	ERR_PASSWDMISMATCH   = "464"
	ERR_YOUREBANNEDCREEP = "465"
)
